package plane

import "github.com/gogpu/hwc/hwcerr"

func errBadHandle(op string) error { return hwcerr.New(op, hwcerr.KindBadHandle) }
func errNoPlane(op string) error   { return hwcerr.New(op, hwcerr.KindNoPlane) }

func errCommitFailed(op string, cause error) error {
	return hwcerr.Wrap(op, hwcerr.KindCommitFailed, cause)
}

func errCommitBusy(op string, cause error) error {
	return hwcerr.Wrap(op, hwcerr.KindCommitBusy, cause)
}

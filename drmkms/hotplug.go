package drmkms

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// netlinkKobjectUevent is NETLINK_KOBJECT_UEVENT from linux/netlink.h; the
// raw uevent socket path used when no udev monitor is available, grounded
// on GpuDevice's own fallback (bind a PF_NETLINK/SOCK_DGRAM socket to this
// protocol and multicast group 1 when udev_monitor_new_from_netlink fails).
const netlinkKobjectUevent = 15

// OpenHotplugSocket binds a raw netlink uevent socket that wakes on every
// kobject add/remove/change event in the system, including DRM connector
// hotplug. The caller is expected to filter: any readable event is treated
// as "re-scan connectors", since parsing the uevent's key=value payload to
// single out DRM-relevant ones isn't necessary for correctness, only for
// avoiding spurious rescans.
func OpenHotplugSocket() (int, error) {
	fd, err := unix.Socket(unix.AF_NETLINK, unix.SOCK_DGRAM, netlinkKobjectUevent)
	if err != nil {
		return -1, fmt.Errorf("drmkms: socket(AF_NETLINK, NETLINK_KOBJECT_UEVENT): %w", err)
	}

	addr := &unix.SockaddrNetlink{Family: unix.AF_NETLINK, Groups: 1}
	if err := unix.Bind(fd, addr); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("drmkms: bind netlink uevent socket: %w", err)
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("drmkms: set netlink uevent socket nonblocking: %w", err)
	}
	return fd, nil
}

// DrainHotplugSocket reads and discards every pending datagram on fd
// without blocking, so internal/eventloop's epoll-triggered handler
// doesn't spin on a socket still marked readable.
func DrainHotplugSocket(fd int) error {
	buf := make([]byte, 4096)
	for {
		_, _, err := unix.Recvfrom(fd, buf, 0)
		if err != nil {
			if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
				return nil
			}
			return fmt.Errorf("drmkms: read uevent: %w", err)
		}
	}
}

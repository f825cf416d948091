// Package types defines the value types shared across the hwc compositor:
// rectangles, transforms, blend modes, pixel formats, and the per-frame
// Layer description that callers hand to Display.Present.
package types

package ptt

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// knownCM108VendorProducts lists the CMedia USB audio chips this back-end
// has been tested against. A device outside this list is still opened -
// PTT proceeds at the caller's own risk, logged by the caller - matching
// the teacher's own "unsupported device type, proceed anyway" stance.
var knownCM108VendorProducts = map[[2]uint16]bool{
	{0x0d8c, 0x000c}: true, // CM108
	{0x0d8c, 0x0008}: true, // CM108B
	{0x0d8c, 0x013c}: true, // CM119
}

// OpenCM108Device opens a /dev/hidrawN node for a CM108/CM119-family USB
// audio adapter's GPIO-based PTT output, returning a write function ready
// to pass to NewCM108 and the device's vendor/product IDs for logging.
func OpenCM108Device(path string) (write func([]byte) error, closeFn func() error, vendor, product uint16, err error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, nil, 0, 0, fmt.Errorf("ptt: opening %s: %w", path, err)
	}

	info, ioctlErr := unix.IoctlHIDGetRawInfo(int(f.Fd()))
	if ioctlErr == nil {
		vendor = uint16(info.Vendor)
		product = uint16(info.Product)
	}

	write = func(report []byte) error {
		_, err := f.Write(report)
		return err
	}
	return write, f.Close, vendor, product, nil
}

// IsKnownCM108Device reports whether vendor/product matches a CMedia chip
// this back-end has been verified against.
func IsKnownCM108Device(vendor, product uint16) bool {
	return knownCM108VendorProducts[[2]uint16{vendor, product}]
}

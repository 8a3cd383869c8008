package adriver

import "github.com/jochenvg/go-udev"

// CaptureDevice describes one enumerated ALSA capture device, used by
// "-in mic -devlist" to print candidates before -adport/-device picks
// one, and by discovery/mdns advertisement to report the device a
// server session is actually using.
type CaptureDevice struct {
	CardNumber string // e.g. "1", matches plughw:1,0
	CardID     string // udev ID_ID / "id" sysattr, e.g. "USB_Audio"
	DevNode    string // e.g. /dev/snd/pcmC1D0c
	USBProduct string // human-readable product string when available
}

// EnumerateCaptureDevices walks udev's "sound" subsystem for capture
// ("c" suffixed pcm) nodes, the pure-Go equivalent of the teacher's
// direct libudev cgo calls (src/cm108.go's inventory walk) built instead
// on the jochenvg/go-udev binding so the rest of the module stays
// cgo-free.
func EnumerateCaptureDevices() ([]CaptureDevice, error) {
	u := udev.Udev{}
	e := u.NewEnumerateFromSubsystems([]string{"sound"})

	devices, err := e.Devices()
	if err != nil {
		return nil, DeviceError("adriver: udev enumerate sound devices")
	}

	var out []CaptureDevice
	for _, d := range devices {
		node := d.Devnode()
		if node == "" || node[len(node)-1] != 'c' {
			continue // "p" suffix is playback, only "c" (capture) interests us
		}

		cd := CaptureDevice{DevNode: node}
		if parent := d.ParentWithSubsystemDevtype("usb", "usb_device"); parent != nil {
			cd.USBProduct = parent.SysattrValue("product")
		}
		cd.CardID = d.PropertyValue("ID_ID")
		cd.CardNumber = d.SysattrValue("number")
		out = append(out, cd)
	}
	return out, nil
}

// Package picoboot programs AVR microcontrollers running the picoboot
// bootloader.
//
// A Session owns the link to one device. Pages are written with
// Session.WritePage, or a whole image with a Programmer:
//
//	session, err := picoboot.Open("/dev/ttyUSB0", transport.Config{})
//	if err != nil {
//	    glog.Fatal(err)
//	}
//	defer session.Close()
//
//	mem, err := image.LoadFile("blink.hex", image.BuiltinParts["attiny85"])
//	...
//	result, err := picoboot.New(session,
//	    picoboot.WithProgressCallback(func(p picoboot.Progress) {
//	        fmt.Printf("%s %.0f%%\n", p.Phase, p.Percentage)
//	    }),
//	).Program(ctx, mem)
//
// The bootloader at the end of flash is never written. The application's
// reset vector is moved into the virtual reset vector in front of the
// bootloader, and the hardware reset vector always jumps to the bootloader.
package picoboot

// Package process provides subprocess lifecycle management.
//
// Process wraps os/exec for a single piped subprocess:
//   - Input written through Stdin, raw stdout delivered to a DataHandler
//   - stderr streamed line by line with pluggable log parsing
//   - Graceful stop: close stdin, then SIGINT after a grace period
//   - Force kill with SIGKILL if the process still does not exit
//
// Example:
//
//	p := process.NewProcess("rec", "ffmpeg -f mjpeg -i pipe:0 -f webm pipe:1", logger)
//	p.SetDataHandler(func(b []byte) { out.Write(b) })
//	if err := p.Start(); err != nil {
//	    return err
//	}
//	p.Stdin().Write(frame)
//	exitCode := p.Stop()
package process

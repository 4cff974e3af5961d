// Package process runs one external program at a time on behalf of the
// panel, such as the media player that renders a PlayMediaURL request.
//
// Each Run starts a fresh child in its own process group, replacing any run
// still in progress. The group can be paused and resumed with job-control
// signals and is stopped with SIGTERM, escalating to SIGKILL after the
// graceful timeout.
//
// Example usage:
//
//	mgr := process.NewManager(process.Config{
//	    Name:            "media",
//	    Binary:          "/usr/bin/mpv",
//	    Args:            []string{"--no-video"},
//	    GracefulTimeout: 3 * time.Second,
//	})
//
//	if err := mgr.Run("http://ha.local/tts.mp3"); err != nil {
//	    return err
//	}
//	defer mgr.Stop()
package process

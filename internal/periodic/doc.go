// Package periodic provides a cancellable fixed-rate task owned by the
// component that starts it.
//
// The API server uses one for its state broadcast and the MQTT bridge uses
// one for its status snapshot. Both join the task in their Stop method.
//
//	task := periodic.New(periodic.Config{
//	    Name:         "broadcast",
//	    InitialDelay: 10 * time.Second,
//	    Interval:     30 * time.Second,
//	}, s.broadcast)
//	task.Start(ctx)
//	defer task.Stop()
package periodic

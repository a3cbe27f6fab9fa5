// Package engine is the discrete-event substrate the simulator runs on.
//
// An Environment owns virtual time and a deterministic event heap. Processes
// are written in continuation-passing style: a process runs until it asks for
// a Timeout or a Store.Get, handing over the Action to resume with. Those two
// calls are the only suspension points, and same-time events run in the
// order they were scheduled, so a run is a pure function of its seed.
package engine

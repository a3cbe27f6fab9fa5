// Package sim simulates a speaker-verification serving topology under model-version skew.
//
// # Reading Guide
//
// Start with these files to understand one run:
//   - message.go: Message lifecycle (client → frontend → worker → frontend → client)
//   - frontend.go: request dispatch and the Policy extension point
//   - simulator.go: strategy dispatch and topology construction
//
// # Architecture
//
// A run wires one Client, one Frontend, N Workers and one ProfileStore (see
// network.go) on a shared engine.Environment. Actors are chains of
// engine.Action continuations; they suspend only on timers and mailbox reads,
// so a fixed seed gives a bit-identical run.
//
// Workers roll their model version on exponential timers independently of
// traffic. The Frontend's Policy decides how a user's enrolled profile
// version is reconciled with the version of the worker a request lands on:
//   - SSO: ForegroundReenrollPolicy, random routing and blocking re-enrollment
//   - SSO-sync: VersionSyncPolicy, random routing corrected by a polled version table
//   - SSO-hash: UserHashPolicy, user-sticky routing
//   - SSO-mul: MultiProfilePolicy, every enrolled version kept in a MultiVersionDatabase
//   - SD: BackgroundReenrollPolicy with DoubleVersionWorkers, re-enrollment off the user path
//
// Sub-packages:
//   - sim/engine/: event heap, Environment, Store mailboxes, partitioned RNG
//   - sim/workload/: user arrival distributions
//   - sim/trace/: routing and version-sync decision trace
//
// Results land in GlobalStats; Report derives quantiles, bounce rates and per-worker load.
package sim

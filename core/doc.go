// Package core defines the shared domain contracts of ava: the persona
// enumeration, user profiles, conversation turns and sessions, the typed
// event stream a turn produces, the store interfaces the orchestration
// engine depends on, and the turn-scoped error taxonomy.
//
// Concrete store implementations live in the session and vectorstore
// packages; depend on the interfaces here and select an implementation at
// wiring time. Keeping the contracts centralized avoids dependency cycles
// between the orchestration packages.
package core

// Package nav models the client's screen flow as an explicit state
// machine: a finite set of named screens, a transition table, and the data
// a transition carries. The view layer dispatches on the returned state
// instead of ad hoc conditionals.
package nav

import "fmt"

// Screen is one named view.
type Screen string

const (
	Onboarding Screen = "ONBOARDING"
	Dashboard  Screen = "DASHBOARD"
	Tracker    Screen = "TRACKER"
	Chat       Screen = "CHAT"
	Analysis   Screen = "ANALYSIS"
	Settings   Screen = "SETTINGS"
)

// State is the current screen plus any data the transition carried.
type State struct {
	Screen Screen
	// TargetDate pre-fills the tracker when editing a calendar day.
	// Empty everywhere else.
	TargetDate string
}

// mainScreens are mutually reachable through the tab bar.
var mainScreens = map[Screen]bool{
	Dashboard: true,
	Tracker:   true,
	Chat:      true,
	Analysis:  true,
	Settings:  true,
}

// allowed reports whether from -> to is a declared transition.
// Onboarding exits only to the dashboard and is never re-entered.
func allowed(from, to Screen) bool {
	if from == Onboarding {
		return to == Dashboard
	}
	return mainScreens[from] && mainScreens[to]
}

// Initial returns the starting state: dashboard for an onboarded profile,
// onboarding otherwise.
func Initial(onboarded bool) State {
	if onboarded {
		return State{Screen: Dashboard}
	}
	return State{Screen: Onboarding}
}

// Navigate validates the transition and returns the new state.
// targetDate is only honored when entering the tracker.
func Navigate(from State, to Screen, targetDate string) (State, error) {
	if !allowed(from.Screen, to) {
		return from, fmt.Errorf("nav: transition %s -> %s not allowed", from.Screen, to)
	}
	next := State{Screen: to}
	if to == Tracker {
		next.TargetDate = targetDate
	}
	return next, nil
}

package session

import "testing"

func TestDecideRoute(t *testing.T) {
	tests := []struct {
		name        string
		isActive    bool
		hasPin      bool
		isOnboarded bool
		unlocked    bool
		want        Route
	}{
		{"disabled account wins over everything", false, true, true, true, RouteReactivation},
		{"disabled without pin still reactivation", false, false, false, false, RouteReactivation},
		{"disabled onboarded locked", false, true, true, false, RouteReactivation},
		{"disabled with pin not onboarded", false, true, false, true, RouteReactivation},
		{"no pin before unlock", true, false, true, true, RoutePinSetup},
		{"no pin locked", true, false, true, false, RoutePinSetup},
		{"no pin not onboarded", true, false, false, false, RoutePinSetup},
		{"no pin not onboarded unlocked", true, false, false, true, RoutePinSetup},
		{"locked before onboarding", true, true, false, false, RoutePinUnlock},
		{"locked onboarded", true, true, true, false, RoutePinUnlock},
		{"unlocked not onboarded", true, true, false, true, RouteOnboarding},
		{"happy path", true, true, true, true, RouteHome},
		{"disabled locked no pin onboarded", false, false, true, false, RouteReactivation},
		{"disabled unlocked no pin", false, false, true, true, RouteReactivation},
		{"disabled unlocked not onboarded", false, false, false, true, RouteReactivation},
		{"disabled locked not onboarded with pin", false, true, false, false, RouteReactivation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DecideRoute(tt.isActive, tt.hasPin, tt.isOnboarded, tt.unlocked)
			if got != tt.want {
				t.Errorf("DecideRoute(%v, %v, %v, %v) = %v, want %v",
					tt.isActive, tt.hasPin, tt.isOnboarded, tt.unlocked, got, tt.want)
			}
		})
	}
}

func TestRouteString(t *testing.T) {
	for r, want := range map[Route]string{
		RouteLogin:        "login",
		RouteReactivation: "reactivation",
		RoutePinSetup:     "pin-setup",
		RoutePinUnlock:    "pin-unlock",
		RouteOnboarding:   "onboarding",
		RouteHome:         "home",
		Route(99):         "unknown",
	} {
		if got := r.String(); got != want {
			t.Errorf("Route(%d).String() = %q, want %q", int(r), got, want)
		}
	}
}

package riot

import "testing"

func TestPlatformRegionMapping(t *testing.T) {
	cases := map[Platform]Region{
		PlatformKR:   RegionAsia,
		PlatformJP1:  RegionAsia,
		PlatformNA1:  RegionAmericas,
		PlatformBR1:  RegionAmericas,
		PlatformEUW1: RegionEurope,
		PlatformRU:   RegionEurope,
		PlatformOC1:  RegionSEA,
		PlatformVN2:  RegionSEA,
	}
	for platform, want := range cases {
		if got := platform.Region(); got != want {
			t.Errorf("%s.Region() = %s, want %s", platform, got, want)
		}
	}
}

func TestEveryPlatformHasARegion(t *testing.T) {
	regions := map[Region]bool{}
	for _, r := range Regions() {
		regions[r] = true
	}
	for _, p := range Platforms() {
		if !regions[p.Region()] {
			t.Errorf("platform %s maps to unknown region %s", p, p.Region())
		}
	}
}

func TestHosts(t *testing.T) {
	if got := PlatformKR.Host(); got != "kr.api.riotgames.com" {
		t.Fatalf("unexpected platform host %q", got)
	}
	if got := RegionAmericas.Host(); got != "americas.api.riotgames.com" {
		t.Fatalf("unexpected region host %q", got)
	}
}

func TestPlatformFromName(t *testing.T) {
	p, err := PlatformFromName("kr")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p != PlatformKR {
		t.Fatalf("expected kr, got %s", p)
	}
	if _, err := PlatformFromName("atlantis"); err == nil {
		t.Fatalf("expected error for unknown platform")
	}
}

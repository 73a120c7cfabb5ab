// Package riot implements the rate-limited HTTP client for the Riot match
// telemetry API along with the route, error and response types the collector
// depends on.
package riot

import "fmt"

// Route identifies one geographic API shard. Routes are the primary axis for
// rate limiting and work partitioning: every request targets exactly one
// route, and every limiter window is keyed by the route name.
type Route interface {
	// Name returns the stable identifier used as a limiter key and stored
	// alongside work items (e.g. "kr", "americas").
	Name() string

	// Host returns the upstream host serving this route.
	Host() string
}

// Platform is a fine-grained per-server route (league endpoints).
type Platform string

// Region is a coarse route aggregating several platforms (match endpoints).
type Region string

const (
	PlatformBR1  Platform = "br1"
	PlatformEUN1 Platform = "eun1"
	PlatformEUW1 Platform = "euw1"
	PlatformJP1  Platform = "jp1"
	PlatformKR   Platform = "kr"
	PlatformLA1  Platform = "la1"
	PlatformLA2  Platform = "la2"
	PlatformNA1  Platform = "na1"
	PlatformOC1  Platform = "oc1"
	PlatformRU   Platform = "ru"
	PlatformSG2  Platform = "sg2"
	PlatformTR1  Platform = "tr1"
	PlatformTW2  Platform = "tw2"
	PlatformVN2  Platform = "vn2"
)

const (
	RegionAmericas Region = "americas"
	RegionAsia     Region = "asia"
	RegionEurope   Region = "europe"
	RegionSEA      Region = "sea"
)

// Platforms lists every known platform route.
func Platforms() []Platform {
	return []Platform{
		PlatformBR1, PlatformEUN1, PlatformEUW1, PlatformJP1, PlatformKR,
		PlatformLA1, PlatformLA2, PlatformNA1, PlatformOC1, PlatformRU,
		PlatformSG2, PlatformTR1, PlatformTW2, PlatformVN2,
	}
}

// Regions lists every known region route.
func Regions() []Region {
	return []Region{RegionAmericas, RegionAsia, RegionEurope, RegionSEA}
}

// PlatformFromName resolves a platform by its name.
func PlatformFromName(name string) (Platform, error) {
	for _, p := range Platforms() {
		if p.Name() == name {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown platform %q", name)
}

func (p Platform) Name() string { return string(p) }

func (p Platform) Host() string {
	return fmt.Sprintf("%s.api.riotgames.com", string(p))
}

// Region returns the region route that aggregates this platform.
func (p Platform) Region() Region {
	switch p {
	case PlatformBR1, PlatformLA1, PlatformLA2, PlatformNA1:
		return RegionAmericas
	case PlatformJP1, PlatformKR:
		return RegionAsia
	case PlatformEUN1, PlatformEUW1, PlatformRU, PlatformTR1:
		return RegionEurope
	case PlatformOC1, PlatformSG2, PlatformTW2, PlatformVN2:
		return RegionSEA
	}
	return RegionAmericas
}

func (r Region) Name() string { return string(r) }

func (r Region) Host() string {
	return fmt.Sprintf("%s.api.riotgames.com", string(r))
}

// RankedQueue selects the ranked ladder a league query enumerates.
type RankedQueue string

const (
	QueueRankedSolo RankedQueue = "RANKED_SOLO_5x5"
	QueueRankedFlex RankedQueue = "RANKED_FLEX_SR"
)

// Tier is a non-apex ranked tier with four divisions.
type Tier string

const (
	TierIron     Tier = "IRON"
	TierBronze   Tier = "BRONZE"
	TierSilver   Tier = "SILVER"
	TierGold     Tier = "GOLD"
	TierPlatinum Tier = "PLATINUM"
	TierEmerald  Tier = "EMERALD"
	TierDiamond  Tier = "DIAMOND"
)

// Tiers lists the non-apex tiers, lowest first.
func Tiers() []Tier {
	return []Tier{
		TierIron, TierBronze, TierSilver, TierGold,
		TierPlatinum, TierEmerald, TierDiamond,
	}
}

// Division subdivides a non-apex tier.
type Division string

const (
	DivisionI   Division = "I"
	DivisionII  Division = "II"
	DivisionIII Division = "III"
	DivisionIV  Division = "IV"
)

// Divisions lists the divisions, highest first.
func Divisions() []Division {
	return []Division{DivisionI, DivisionII, DivisionIII, DivisionIV}
}

// ApexTier is one of the single-division apex leagues served by dedicated
// endpoints rather than the paged entries endpoint.
type ApexTier string

const (
	ApexMaster      ApexTier = "master"
	ApexGrandmaster ApexTier = "grandmaster"
	ApexChallenger  ApexTier = "challenger"
)

// ApexTiers lists the apex leagues, lowest first.
func ApexTiers() []ApexTier {
	return []ApexTier{ApexMaster, ApexGrandmaster, ApexChallenger}
}

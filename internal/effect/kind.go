package effect

import "strings"

// Kind is the closed set of effect kinds an extracted descriptor may take.
type Kind uint8

const (
	KindUnknown Kind = iota // unrecognised wire value, contributes nothing
	KindDamageIncrease
	KindAtkIncrease
	KindElementalDamage
	KindCritRate
	KindCritDamage
	KindDefDecrease
	KindSpeedIncrease
	KindCooldownReduction
	KindHeal
	KindShield

	kindCount
)

// Assumed combat constants used by the crit formulas.
const (
	// AssumedCritDamage is the crit-damage bonus a crit rate increase is weighed against.
	AssumedCritDamage = 0.5
	// AssumedCritRate is the base crit chance a crit damage increase is weighed against.
	AssumedCritRate = 0.1
)

// contribution maps an effective magnitude (descriptor magnitude × stacks) to the
// amount added to the instantaneous damage multiplier.
type contribution func(magnitude float64) float64

type kindInfo struct {
	wire       string
	contribute contribution
}

func none(float64) float64 { return 0 }

func direct(m float64) float64 { return m / 100 }

// kindTable is the only place scoring semantics live. Adding a kind means adding
// a constant above and one row here; TestKindTableComplete catches a missing row.
var kindTable = [kindCount]kindInfo{
	KindUnknown:           {wire: "unknown", contribute: none},
	KindDamageIncrease:    {wire: "damage_increase", contribute: direct},
	KindAtkIncrease:       {wire: "atk_increase", contribute: direct},
	KindElementalDamage:   {wire: "elemental_damage", contribute: direct},
	KindCritRate:          {wire: "crit_rate", contribute: func(m float64) float64 { return m / 100 * AssumedCritDamage }},
	KindCritDamage:        {wire: "crit_damage", contribute: func(m float64) float64 { return AssumedCritRate * (m / 100) }},
	KindDefDecrease:       {wire: "def_decrease", contribute: func(m float64) float64 { return m / 200 }},
	KindSpeedIncrease:     {wire: "speed_increase", contribute: none},
	KindCooldownReduction: {wire: "cooldown_reduction", contribute: none},
	KindHeal:              {wire: "heal", contribute: none},
	KindShield:            {wire: "shield", contribute: none},
}

var kindByWire = func() map[string]Kind {
	m := make(map[string]Kind, kindCount)
	for k := Kind(0); k < kindCount; k++ {
		m[kindTable[k].wire] = k
	}
	return m
}()

// ParseKind maps a wire string to a Kind. Matching ignores case and treats
// '-' and ' ' like '_'. Unrecognised values return KindUnknown and false.
func ParseKind(s string) (Kind, bool) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer("-", "_", " ", "_").Replace(norm)
	k, ok := kindByWire[norm]
	if !ok || k == KindUnknown {
		return KindUnknown, false
	}
	return k, true
}

// Kinds returns every known kind, KindUnknown excluded.
func Kinds() []Kind {
	out := make([]Kind, 0, kindCount-1)
	for k := KindUnknown + 1; k < kindCount; k++ {
		out = append(out, k)
	}
	return out
}

// String returns the wire name of the kind.
func (k Kind) String() string {
	if k >= kindCount {
		return kindTable[KindUnknown].wire
	}
	return kindTable[k].wire
}

// Contribution returns what an effective magnitude of this kind adds to the
// damage multiplier. Out-of-range kinds contribute nothing.
func (k Kind) Contribution(magnitude float64) float64 {
	if k >= kindCount || kindTable[k].contribute == nil {
		return 0
	}
	return kindTable[k].contribute(magnitude)
}

// Unit is the unit a descriptor's magnitude is expressed in.
type Unit uint8

const (
	UnitPercentage Unit = iota
	UnitCount
	UnitSeconds
)

var unitNames = [...]string{
	UnitPercentage: "percentage",
	UnitCount:      "count",
	UnitSeconds:    "seconds",
}

// ParseUnit maps a wire string to a Unit. "%" and "percent" are accepted as
// percentage, "s"/"sec" as seconds. Anything unrecognised falls back to percentage.
func ParseUnit(s string) (Unit, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "percentage", "percent", "%", "":
		return UnitPercentage, true
	case "count", "times", "stacks":
		return UnitCount, true
	case "seconds", "second", "sec", "s":
		return UnitSeconds, true
	}
	return UnitPercentage, false
}

func (u Unit) String() string {
	if int(u) >= len(unitNames) {
		return unitNames[UnitPercentage]
	}
	return unitNames[u]
}

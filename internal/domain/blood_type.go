package domain

import (
	"fmt"
	"strings"
)

type BloodType string

const (
	BloodTypeAPos  BloodType = "A+"
	BloodTypeANeg  BloodType = "A-"
	BloodTypeBPos  BloodType = "B+"
	BloodTypeBNeg  BloodType = "B-"
	BloodTypeABPos BloodType = "AB+"
	BloodTypeABNeg BloodType = "AB-"
	BloodTypeOPos  BloodType = "O+"
	BloodTypeONeg  BloodType = "O-"
)

// AllBloodTypes lists every supported type in display order.
var AllBloodTypes = []BloodType{
	BloodTypeAPos, BloodTypeANeg,
	BloodTypeBPos, BloodTypeBNeg,
	BloodTypeABPos, BloodTypeABNeg,
	BloodTypeOPos, BloodTypeONeg,
}

const UniversalDonor = BloodTypeONeg

func (b BloodType) IsValid() bool {
	switch b {
	case BloodTypeAPos, BloodTypeANeg, BloodTypeBPos, BloodTypeBNeg,
		BloodTypeABPos, BloodTypeABNeg, BloodTypeOPos, BloodTypeONeg:
		return true
	}
	return false
}

func (b BloodType) String() string {
	return string(b)
}

// ParseBloodType accepts case-insensitive input with either an ASCII hyphen
// or a Unicode minus sign and returns the canonical value.
func ParseBloodType(s string) (BloodType, error) {
	normalized := strings.ToUpper(strings.TrimSpace(s))
	normalized = strings.ReplaceAll(normalized, "−", "-")
	normalized = strings.ReplaceAll(normalized, " ", "")

	bt := BloodType(normalized)
	if !bt.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidBloodType, s)
	}
	return bt, nil
}

func (b BloodType) abo() string {
	return strings.TrimRight(string(b), "+-")
}

func (b BloodType) rhPositive() bool {
	return strings.HasSuffix(string(b), "+")
}

func (b BloodType) antigens() map[byte]bool {
	set := make(map[byte]bool, 2)
	for _, c := range []byte(b.abo()) {
		if c == 'A' || c == 'B' {
			set[c] = true
		}
	}
	return set
}

// compatible reports whether red cells of donor may be given to recipient:
// the donor must not carry an ABO antigen the recipient lacks, and an Rh+
// donor may only give to an Rh+ recipient.
func compatible(donor, recipient BloodType) bool {
	recipientAntigens := recipient.antigens()
	for antigen := range donor.antigens() {
		if !recipientAntigens[antigen] {
			return false
		}
	}
	if donor.rhPositive() && !recipient.rhPositive() {
		return false
	}
	return true
}

type compatibilityTable struct {
	donatesTo    map[BloodType][]BloodType
	receivesFrom map[BloodType][]BloodType
}

var table = buildCompatibilityTable()

func buildCompatibilityTable() compatibilityTable {
	t := compatibilityTable{
		donatesTo:    make(map[BloodType][]BloodType, len(AllBloodTypes)),
		receivesFrom: make(map[BloodType][]BloodType, len(AllBloodTypes)),
	}
	for _, donor := range AllBloodTypes {
		for _, recipient := range AllBloodTypes {
			if compatible(donor, recipient) {
				t.donatesTo[donor] = append(t.donatesTo[donor], recipient)
				t.receivesFrom[recipient] = append(t.receivesFrom[recipient], donor)
			}
		}
	}
	return t
}

// CanDonateTo returns the recipient types that may receive from donor.
func CanDonateTo(donor BloodType) ([]BloodType, error) {
	if !donor.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBloodType, string(donor))
	}
	return cloneTypes(table.donatesTo[donor]), nil
}

// CompatibleDonorTypes returns the donor types whose blood recipient may
// receive. It is the inverse of CanDonateTo.
func CompatibleDonorTypes(recipient BloodType) ([]BloodType, error) {
	if !recipient.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBloodType, string(recipient))
	}
	return cloneTypes(table.receivesFrom[recipient]), nil
}

// IsCompatible reports whether a unit of donor type can serve a recipient.
func IsCompatible(donor, recipient BloodType) bool {
	if !donor.IsValid() || !recipient.IsValid() {
		return false
	}
	for _, r := range table.donatesTo[donor] {
		if r == recipient {
			return true
		}
	}
	return false
}

func cloneTypes(types []BloodType) []BloodType {
	out := make([]BloodType, len(types))
	copy(out, types)
	return out
}

func BloodTypeStrings(types []BloodType) []string {
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = string(t)
	}
	return out
}

package script

// Kind is the closed set of node behaviours.
type Kind int

const (
	KindEvent Kind = iota
	KindGetVariable
	KindSetVariable
	KindGetMember
	KindSetMember
	KindCallFunction
	KindBranch
	KindFor
	KindWhile
)

var kindNames = [...]string{
	KindEvent:        "Event",
	KindGetVariable:  "GetVariable",
	KindSetVariable:  "SetVariable",
	KindGetMember:    "GetMember",
	KindSetMember:    "SetMember",
	KindCallFunction: "CallFunction",
	KindBranch:       "Branch",
	KindFor:          "For",
	KindWhile:        "While",
}

// String returns the registered kind name used in documents and generated
// node names.
func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "Unknown"
	}
	return kindNames[k]
}

// ParseKind resolves a registered kind name.
func ParseKind(name string) (Kind, bool) {
	for k, n := range kindNames {
		if n == name {
			return Kind(k), true
		}
	}
	return 0, false
}

// Kinds lists every kind in catalog order.
func Kinds() []Kind {
	kinds := make([]Kind, len(kindNames))
	for i := range kindNames {
		kinds[i] = Kind(i)
	}
	return kinds
}

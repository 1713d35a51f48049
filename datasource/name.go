package datasource

import (
	"fmt"
	"strings"

	"github.com/zeptools/gw-multids/db/sqldb"
)

// Name is the logical name of one configured backend
type Name string

// RoutingName is the fixed identifier of the routing data source in dynamic mode.
// The shared chain built over it is exposed as dataSourceSessionFactory and so on.
const RoutingName Name = "dataSource"

// ParseName trims s and checks that it can be part of a resource identifier.
func ParseName(s string) (Name, error) {
	s = strings.TrimSpace(s)
	if !sqldb.IsIdentifier(s) {
		return "", ConfigurationError{Name: s, Reason: ErrInvalidName}
	}
	return Name(s), nil
}

func (n Name) String() string {
	return string(n)
}

// Kind is one stage of a resource chain
type Kind int

const (
	KindPool Kind = iota
	KindSessionFactory
	KindSessionTemplate
	KindTransactionManager
	KindTransactionTemplate
	KindRoutingDataSource
)

// Kinds of a static bundle, in construction order
var BundleKinds = []Kind{
	KindPool,
	KindSessionFactory,
	KindSessionTemplate,
	KindTransactionManager,
	KindTransactionTemplate,
}

// Kinds exposed in dynamic mode under RoutingName, in construction order
var RoutingKinds = []Kind{
	KindRoutingDataSource,
	KindSessionFactory,
	KindSessionTemplate,
	KindTransactionManager,
	KindTransactionTemplate,
}

var kindSuffixes = map[Kind]string{
	KindPool:                "Pool",
	KindSessionFactory:      "SessionFactory",
	KindSessionTemplate:     "SessionTemplate",
	KindTransactionManager:  "TransactionManager",
	KindTransactionTemplate: "TransactionTemplate",
	KindRoutingDataSource:   "",
}

// Suffix is appended to a Name to form the identifier of this stage
func (k Kind) Suffix() string {
	return kindSuffixes[k]
}

func (k Kind) String() string {
	if k == KindRoutingDataSource {
		return "RoutingDataSource"
	}
	if s, ok := kindSuffixes[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ID identifies one exposed resource, e.g. {orders, KindPool} is "ordersPool".
type ID struct {
	Name Name
	Kind Kind
}

func (id ID) String() string {
	return string(id.Name) + id.Kind.Suffix()
}

// ParseID splits an identifier such as "usersTransactionTemplate" into its name and kind.
// A bare "dataSource" is the routing data source.
func ParseID(s string) (ID, error) {
	if s == string(RoutingName) {
		return ID{Name: RoutingName, Kind: KindRoutingDataSource}, nil
	}
	for k, suffix := range kindSuffixes {
		if suffix == "" || !strings.HasSuffix(s, suffix) {
			continue
		}
		name, err := ParseName(strings.TrimSuffix(s, suffix))
		if err != nil {
			return ID{}, fmt.Errorf("identifier %q: %w", s, err)
		}
		return ID{Name: name, Kind: k}, nil
	}
	return ID{}, fmt.Errorf("identifier %q has no known kind suffix", s)
}

// Mode selects between per-name bundles and a single routing data source
type Mode string

const (
	Static  Mode = "static"
	Dynamic Mode = "dynamic"
)

func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case Static, Dynamic:
		return m, nil
	case "":
		return Static, nil
	default:
		return "", fmt.Errorf("unknown datasource mode %q", s)
	}
}

// Policy decides what the routing data source does with a key that names no pool
type Policy string

const (
	PolicyFail     Policy = "fail"
	PolicyFallback Policy = "fallback"
)

func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case PolicyFail, PolicyFallback:
		return p, nil
	case "":
		return PolicyFail, nil
	default:
		return "", fmt.Errorf("unknown routing key policy %q", s)
	}
}

package standards

import (
	"embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed data/*.yaml
var datasets embed.FS

type recordKey struct {
	category    Category
	designation string
}

// Store is the reference-standards lookup table. It is fully populated by
// Load and never mutated afterwards; Lookup results are memoized per
// normalized (category, designation) pair so repeated queries from hot
// validator loops skip normalization. Safe for unbounded concurrent reads.
type Store struct {
	records map[recordKey]Record
	limits  CodeLimits

	mu   sync.RWMutex
	memo map[recordKey]lookupResult
}

type lookupResult struct {
	rec Record
	ok  bool
}

// Load parses the embedded datasets and returns a ready Store. It fails only
// on a corrupt dataset, which is a packaging defect rather than a runtime
// condition.
func Load() (*Store, error) {
	s := &Store{
		records: make(map[recordKey]Record),
		memo:    make(map[recordKey]lookupResult),
	}
	type fileSpec struct {
		name     string
		category Category
		listKey  string
	}
	files := []fileSpec{
		{"data/beams.yaml", CategoryBeam, "shapes"},
		{"data/bolts.yaml", CategoryBolt, "grades"},
		{"data/materials.yaml", CategoryMaterial, "specs"},
		{"data/pipes.yaml", CategoryPipe, "sizes"},
	}
	for _, f := range files {
		if err := s.loadTable(f.name, f.category, f.listKey); err != nil {
			return nil, fmt.Errorf("standards: load %s: %w", f.name, err)
		}
	}
	data, err := datasets.ReadFile("data/codelimits.yaml")
	if err != nil {
		return nil, fmt.Errorf("standards: read codelimits: %w", err)
	}
	if err := yaml.Unmarshal(data, &s.limits); err != nil {
		return nil, fmt.Errorf("standards: parse codelimits: %w", err)
	}
	if len(s.limits.FilletBrackets) == 0 {
		return nil, fmt.Errorf("standards: codelimits missing fillet brackets")
	}
	return s, nil
}

// MustLoad is Load for process bootstrap paths where a corrupt embedded
// dataset is unrecoverable.
func MustLoad() *Store {
	s, err := Load()
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Store) loadTable(name string, category Category, listKey string) error {
	data, err := datasets.ReadFile(name)
	if err != nil {
		return err
	}
	var doc struct {
		Source  string                 `yaml:"source"`
		Entries map[string][]yaml.Node `yaml:",inline"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return err
	}
	nodes, ok := doc.Entries[listKey]
	if !ok {
		return fmt.Errorf("missing %q list", listKey)
	}
	for i, node := range nodes {
		rec, err := decodeRecord(&node, category, doc.Source)
		if err != nil {
			return fmt.Errorf("entry %d: %w", i, err)
		}
		key := recordKey{category, NormalizeDesignation(rec.Designation)}
		if _, dup := s.records[key]; dup {
			return fmt.Errorf("duplicate designation %q", rec.Designation)
		}
		s.records[key] = rec
	}
	return nil
}

// decodeRecord splits a YAML mapping into the designation, numeric
// properties, and string attributes of one Record.
func decodeRecord(node *yaml.Node, category Category, defaultSource string) (Record, error) {
	var fields map[string]yaml.Node
	if err := node.Decode(&fields); err != nil {
		return Record{}, err
	}
	rec := Record{
		Category:    category,
		Properties:  make(map[string]float64),
		Attrs:       make(map[string]string),
		SourceTable: defaultSource,
	}
	for name, val := range fields {
		switch name {
		case "designation":
			if err := val.Decode(&rec.Designation); err != nil {
				return Record{}, err
			}
		case "source_table":
			if err := val.Decode(&rec.SourceTable); err != nil {
				return Record{}, err
			}
		default:
			var f float64
			if err := val.Decode(&f); err == nil {
				rec.Properties[name] = f
				continue
			}
			var str string
			if err := val.Decode(&str); err != nil {
				return Record{}, fmt.Errorf("field %q: %w", name, err)
			}
			rec.Attrs[name] = str
		}
	}
	if rec.Designation == "" {
		return Record{}, fmt.Errorf("entry missing designation")
	}
	return rec, nil
}

// Lookup returns the record for a designation within a category. A miss is an
// ordinary outcome (nonstandard designation on a drawing), reported through
// the boolean, never an error.
func (s *Store) Lookup(category Category, designation string) (Record, bool) {
	key := recordKey{category, designation}
	s.mu.RLock()
	res, hit := s.memo[key]
	s.mu.RUnlock()
	if hit {
		return res.rec, res.ok
	}
	rec, ok := s.records[recordKey{category, NormalizeDesignation(designation)}]
	s.mu.Lock()
	s.memo[key] = lookupResult{rec, ok}
	s.mu.Unlock()
	return rec, ok
}

// Limits exposes the welding/weldability code constants.
func (s *Store) Limits() CodeLimits { return s.limits }

// Count reports the number of loaded records, used by bootstrap logging.
func (s *Store) Count() int { return len(s.records) }

// MinFilletSize returns the minimum permissible fillet leg for the given
// base-metal thickness along with the bracket that supplied it. Bracket
// membership is lower-exclusive, upper-inclusive.
func (s *Store) MinFilletSize(thickness float64) (float64, FilletBracket, bool) {
	if thickness <= 0 {
		return 0, FilletBracket{}, false
	}
	for _, b := range s.limits.FilletBrackets {
		if b.MaxThickness == 0 || thickness <= b.MaxThickness {
			return b.MinSize, b, true
		}
	}
	return 0, FilletBracket{}, false
}

// MaxFilletSize returns the maximum fillet leg permitted along an edge of the
// given thickness: the full thickness for thin edges, thickness minus the
// edge margin otherwise.
func (s *Store) MaxFilletSize(thickness float64) (float64, bool) {
	if thickness <= 0 {
		return 0, false
	}
	if thickness < s.limits.ThinEdgeLimit {
		return thickness, true
	}
	return thickness - s.limits.MaxFilletMargin, true
}

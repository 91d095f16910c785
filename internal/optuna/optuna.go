// Package optuna reads hyperparameter search results straight out of
// an Optuna RDB storage file. Only the handful of tables the plots
// need are touched: studies, their directions, completed trials and
// the sampled parameters.
package optuna

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat"
	_ "modernc.org/sqlite"
)

// Study is one named optimization run in the storage.
type Study struct {
	ID        int64
	Name      string
	Direction string // MINIMIZE or MAXIMIZE
}

// Maximize reports whether larger objective values are better.
func (s Study) Maximize() bool {
	return strings.EqualFold(s.Direction, "MAXIMIZE")
}

// Trial is one completed trial with its objective value and sampled
// parameters. Params holds the internal numeric representation,
// Labels the human-readable one.
type Trial struct {
	Number int
	Value  float64
	Params map[string]float64
	Labels map[string]string
}

// FindDB locates an optuna .db file under root, shallowest first.
// Empty means none; search plots are simply skipped then.
func FindDB(root string) string {
	var found []string
	_ = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if strings.HasSuffix(d.Name(), ".db") {
			found = append(found, path)
		}
		return nil
	})
	if len(found) == 0 {
		return ""
	}
	sort.Slice(found, func(i, j int) bool {
		// optuna.db beats other .db files, then shallower beats deeper.
		ei := filepath.Base(found[i]) == "optuna.db"
		ej := filepath.Base(found[j]) == "optuna.db"
		if ei != ej {
			return ei
		}
		di := strings.Count(found[i], string(os.PathSeparator))
		dj := strings.Count(found[j], string(os.PathSeparator))
		if di != dj {
			return di < dj
		}
		return found[i] < found[j]
	})
	return found[0]
}

// Storage is a read-only handle on one RDB file.
type Storage struct {
	db *sql.DB
}

// Open opens the storage file. The mode query keeps sqlite from
// creating an empty database when the path is wrong.
func Open(path string) (*Storage, error) {
	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("opening optuna storage %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("opening optuna storage %s: %w", path, err)
	}
	return &Storage{db: db}, nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}

// Studies lists every study with its first objective's direction.
func (s *Storage) Studies(ctx context.Context) ([]Study, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.study_id, s.study_name, COALESCE(d.direction, 'MINIMIZE')
		FROM studies s
		LEFT JOIN study_directions d ON d.study_id = s.study_id AND d.objective = 0
		ORDER BY s.study_id`)
	if err != nil {
		return nil, fmt.Errorf("querying studies: %w", err)
	}
	defer rows.Close()
	var studies []Study
	for rows.Next() {
		var st Study
		if err := rows.Scan(&st.ID, &st.Name, &st.Direction); err != nil {
			return nil, fmt.Errorf("scanning study: %w", err)
		}
		studies = append(studies, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("querying studies: %w", err)
	}
	return studies, nil
}

// Trials returns the completed trials of one study in trial order.
func (s *Storage) Trials(ctx context.Context, studyID int64) ([]Trial, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.trial_id, t.number, v.value
		FROM trials t
		JOIN trial_values v ON v.trial_id = t.trial_id AND v.objective = 0
		WHERE t.study_id = ? AND t.state = 'COMPLETE'
		ORDER BY t.number`, studyID)
	if err != nil {
		return nil, fmt.Errorf("querying trials: %w", err)
	}
	defer rows.Close()

	byID := make(map[int64]*Trial)
	var order []int64
	for rows.Next() {
		var id int64
		var tr Trial
		if err := rows.Scan(&id, &tr.Number, &tr.Value); err != nil {
			return nil, fmt.Errorf("scanning trial: %w", err)
		}
		tr.Params = make(map[string]float64)
		tr.Labels = make(map[string]string)
		byID[id] = &tr
		order = append(order, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("querying trials: %w", err)
	}

	prows, err := s.db.QueryContext(ctx, `
		SELECT p.trial_id, p.param_name, p.param_value, p.distribution_json
		FROM trial_params p
		JOIN trials t ON t.trial_id = p.trial_id
		WHERE t.study_id = ?
		ORDER BY p.trial_id, p.param_name`, studyID)
	if err != nil {
		return nil, fmt.Errorf("querying trial params: %w", err)
	}
	defer prows.Close()
	for prows.Next() {
		var id int64
		var name, distJSON string
		var value float64
		if err := prows.Scan(&id, &name, &value, &distJSON); err != nil {
			return nil, fmt.Errorf("scanning trial param: %w", err)
		}
		tr, ok := byID[id]
		if !ok {
			continue // pruned or failed trial
		}
		tr.Params[name] = value
		tr.Labels[name] = paramLabel(value, distJSON)
	}
	if err := prows.Err(); err != nil {
		return nil, fmt.Errorf("querying trial params: %w", err)
	}

	trials := make([]Trial, 0, len(order))
	for _, id := range order {
		trials = append(trials, *byID[id])
	}
	return trials, nil
}

type distribution struct {
	Name       string `json:"name"`
	Attributes struct {
		Choices []any `json:"choices"`
	} `json:"attributes"`
}

// paramLabel maps an internal parameter value back to something a
// human sampled: categorical values are indexes into the choice list.
func paramLabel(value float64, distJSON string) string {
	var dist distribution
	if err := json.Unmarshal([]byte(distJSON), &dist); err == nil &&
		strings.HasPrefix(dist.Name, "Categorical") {
		idx := int(value)
		if idx >= 0 && idx < len(dist.Attributes.Choices) {
			return fmt.Sprintf("%v", dist.Attributes.Choices[idx])
		}
	}
	if value == math.Trunc(value) && math.Abs(value) < 1e15 {
		return fmt.Sprintf("%d", int64(value))
	}
	return fmt.Sprintf("%g", value)
}

// ParamImportance is one parameter's share of the objective variation.
type ParamImportance struct {
	Name  string
	Score float64
}

// Importance scores every parameter by the absolute correlation
// between its sampled values and the objective, normalized to sum to
// one. Crude next to fANOVA but stable on the handful of trials a
// typical sweep has.
func Importance(trials []Trial) []ParamImportance {
	values := make(map[string][]float64)
	objectives := make(map[string][]float64)
	for _, tr := range trials {
		for name, v := range tr.Params {
			values[name] = append(values[name], v)
			objectives[name] = append(objectives[name], tr.Value)
		}
	}

	var imps []ParamImportance
	total := 0.0
	for name, xs := range values {
		if len(xs) < 2 {
			continue
		}
		r := stat.Correlation(xs, objectives[name], nil)
		score := math.Abs(r)
		if math.IsNaN(score) {
			score = 0
		}
		imps = append(imps, ParamImportance{Name: name, Score: score})
		total += score
	}
	if total > 0 {
		for i := range imps {
			imps[i].Score /= total
		}
	}
	sort.Slice(imps, func(i, j int) bool {
		if imps[i].Score != imps[j].Score {
			return imps[i].Score > imps[j].Score
		}
		return imps[i].Name < imps[j].Name
	})
	return imps
}

package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/bvdk-tools/prefabgen/internal/codes"
	"github.com/bvdk-tools/prefabgen/internal/collector"
	"github.com/bvdk-tools/prefabgen/internal/config"
	"github.com/bvdk-tools/prefabgen/internal/document"
	"github.com/bvdk-tools/prefabgen/internal/geometry"
	"github.com/bvdk-tools/prefabgen/internal/session"
)

// fixture is a document with a plan active view, a title block, two
// master schedules, and three pipes plus a fitting inside a 10x10
// region.
type fixture struct {
	store   *document.Store
	cfg     config.Config
	pipes   []int64
	fitting int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := document.Open(filepath.Join(t.TempDir(), "doc.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	f := &fixture{store: store, cfg: config.Default()}

	active, err := store.AddView(document.View{Name: "Level 1", Kind: document.ViewPlan, Discipline: "Mechanical", Scale: 100})
	if err != nil {
		t.Fatalf("add view: %v", err)
	}
	if err := store.SetActiveView(active); err != nil {
		t.Fatalf("set active view: %v", err)
	}
	if _, err := store.AddTitleBlock("A1 Metric", "A1"); err != nil {
		t.Fatalf("add title block: %v", err)
	}
	for _, name := range f.cfg.MasterScheduleNames {
		if _, err := store.AddMasterSchedule(name); err != nil {
			t.Fatalf("add master %q: %v", name, err)
		}
	}

	box := func(x, y float64) *geometry.Box {
		return &geometry.Box{
			Min: geometry.Point{X: x - 0.5, Y: y - 0.5},
			Max: geometry.Point{X: x + 0.5, Y: y + 0.5, Z: 1},
		}
	}
	for i, x := range []float64{2, 5, 8} {
		id, err := store.AddElement(document.Element{
			Category: document.CategoryPipe,
			Name:     fmt.Sprintf("P%d", i+1),
			BBox:     box(x, 5),
		})
		if err != nil {
			t.Fatalf("add pipe: %v", err)
		}
		f.pipes = append(f.pipes, id)
	}
	f.fitting, err = store.AddElement(document.Element{
		Category: document.CategoryFitting,
		Name:     "F1",
		BBox:     box(3, 5),
	})
	if err != nil {
		t.Fatalf("add fitting: %v", err)
	}
	return f
}

func (f *fixture) newSession(t *testing.T) *session.Session {
	t.Helper()
	poly, err := geometry.BuildPolygon([]geometry.Segment{
		{Start: geometry.Point{}, End: geometry.Point{X: 10}},
		{Start: geometry.Point{X: 10}, End: geometry.Point{X: 10, Y: 10}},
		{Start: geometry.Point{X: 10, Y: 10}, End: geometry.Point{Y: 10}},
		{Start: geometry.Point{Y: 10}, End: geometry.Point{}},
	}, geometry.DefaultTolerance)
	if err != nil {
		t.Fatalf("polygon: %v", err)
	}
	cands, warns, err := collector.Collect(f.store, poly, nil)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(warns) != 0 {
		t.Fatalf("unexpected warnings: %v", warns)
	}
	return session.New(cands, f.cfg.SeedPrefixKeyword, codes.PairingIndependent)
}

func TestRunGeneratesFullBundle(t *testing.T) {
	f := newFixture(t)
	s := f.newSession(t)
	if err := s.AutoFill("prefab 5.5.5", false); err != nil {
		t.Fatalf("autofill: %v", err)
	}

	result, err := New(f.store, f.cfg).Run(context.Background(), s)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if result.BaseCode != "5.5.5" {
		t.Errorf("base = %q, want 5.5.5", result.BaseCode)
	}
	if result.CodesWritten != 4 {
		t.Errorf("codes written = %d, want 4", result.CodesWritten)
	}
	if !result.PlanCreated || !result.IsoCreated || !result.SheetCreated {
		t.Errorf("created flags = %v/%v/%v, want all true",
			result.PlanCreated, result.IsoCreated, result.SheetCreated)
	}
	last := result.States[len(result.States)-1]
	if last != StateCommitted {
		t.Errorf("final state = %q, want committed", last)
	}

	// Codes landed in the annotation field: leftmost pipe is .1.
	code, err := f.store.TextParam(f.pipes[0], f.cfg.AnnotationFieldName)
	if err != nil || code != "5.5.5.1" {
		t.Errorf("pipe code = %q, %v; want 5.5.5.1", code, err)
	}
	code, _ = f.store.TextParam(f.fitting, f.cfg.AnnotationFieldName)
	if code != "5.5.5" {
		t.Errorf("fitting code = %q, want 5.5.5", code)
	}

	// Plan view named after the base, cropped, styled.
	view, err := f.store.ViewByName("5.5.5")
	if err != nil {
		t.Fatalf("plan view: %v", err)
	}
	if !view.CropActive || view.Crop == nil {
		t.Error("plan view crop not active")
	}
	if view.Scale != f.cfg.ViewScale {
		t.Errorf("view scale = %d, want %d", view.Scale, f.cfg.ViewScale)
	}
	if _, err := f.store.ViewByName("5.5.5 3D"); err != nil {
		t.Errorf("3d view: %v", err)
	}

	sheet, err := f.store.SheetByNumber("5.5.5")
	if err != nil {
		t.Fatalf("sheet: %v", err)
	}
	if sheet.Name != "Prefab 5.5.5" {
		t.Errorf("sheet name = %q, want Prefab 5.5.5", sheet.Name)
	}

	if len(result.Schedules) != len(f.cfg.MasterScheduleNames) {
		t.Fatalf("got %d schedules, want %d", len(result.Schedules), len(f.cfg.MasterScheduleNames))
	}
	sched, err := f.store.ScheduleByName(f.cfg.MasterScheduleNames[0] + " 5.5.5")
	if err != nil {
		t.Fatalf("schedule duplicate: %v", err)
	}
	if sched.FilterOp != document.FilterOpContains || sched.FilterValue != "5.5.5" {
		t.Errorf("filter = %q %q, want contains 5.5.5", sched.FilterOp, sched.FilterValue)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	f := newFixture(t)
	runner := New(f.store, f.cfg)

	s := f.newSession(t)
	if err := s.AutoFill("prefab 5.5.5", false); err != nil {
		t.Fatalf("autofill: %v", err)
	}
	if _, err := runner.Run(context.Background(), s); err != nil {
		t.Fatalf("first run: %v", err)
	}

	// Fresh session over the same region, same seed.
	s2 := f.newSession(t)
	if err := s2.AutoFill("prefab 5.5.5", false); err != nil {
		t.Fatalf("autofill: %v", err)
	}
	result, err := runner.Run(context.Background(), s2)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	if result.PlanCreated || result.IsoCreated || result.SheetCreated {
		t.Errorf("second run created artifacts: %v/%v/%v",
			result.PlanCreated, result.IsoCreated, result.SheetCreated)
	}
	for _, sr := range result.Schedules {
		if sr.Created {
			t.Errorf("second run duplicated schedule %q", sr.Name)
		}
	}
}

func TestRunRefusesNonPlanActiveView(t *testing.T) {
	f := newFixture(t)
	iso, err := f.store.AddView(document.View{Name: "Default 3D", Kind: document.View3D})
	if err != nil {
		t.Fatalf("add 3d view: %v", err)
	}
	if err := f.store.SetActiveView(iso); err != nil {
		t.Fatalf("set active: %v", err)
	}

	s := f.newSession(t)
	if err := s.AutoFill("prefab 5.5.5", false); err != nil {
		t.Fatalf("autofill: %v", err)
	}

	_, err = New(f.store, f.cfg).Run(context.Background(), s)
	var vce *ViewContextError
	if !errors.As(err, &vce) {
		t.Fatalf("err = %v, want *ViewContextError", err)
	}

	// Refusal happened before the transaction: nothing was written.
	if code, _ := f.store.TextParam(f.pipes[0], f.cfg.AnnotationFieldName); code != "" {
		t.Errorf("annotation written despite refusal: %q", code)
	}
	if _, err := f.store.SheetByNumber("5.5.5"); !errors.Is(err, document.ErrNotFound) {
		t.Error("sheet exists despite refusal")
	}
}

func TestRunRefusesUnparsedSeed(t *testing.T) {
	f := newFixture(t)
	s := f.newSession(t) // no AutoFill, so no seed

	_, err := New(f.store, f.cfg).Run(context.Background(), s)
	var sfe *codes.SeedFormatError
	if !errors.As(err, &sfe) {
		t.Fatalf("err = %v, want *SeedFormatError", err)
	}
}

func TestRunRefusesMissingConfiguredResources(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"missing master schedule", func(c *config.Config) {
			c.MasterScheduleNames = []string{"No Such Schedule"}
		}},
		{"missing title block", func(c *config.Config) {
			c.SheetTitleBlock = "No Such Family"
		}},
		{"missing view template", func(c *config.Config) {
			c.ViewTemplateName = "No Such Template"
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			cfg := f.cfg
			tt.mutate(&cfg)

			s := f.newSession(t)
			if err := s.AutoFill("prefab 5.5.5", false); err != nil {
				t.Fatalf("autofill: %v", err)
			}

			_, err := New(f.store, cfg).Run(context.Background(), s)
			var ce *ConfigurationError
			if !errors.As(err, &ce) {
				t.Fatalf("err = %v, want *ConfigurationError", err)
			}
		})
	}
}

// failingTx fails sheet creation to exercise mid-pipeline rollback.
type failingTx struct {
	document.Tx
}

func (f *failingTx) CreateSheet(number, name string, titleBlockID int64) (*document.Sheet, error) {
	return nil, errors.New("sheet creation exploded")
}

func TestRunRollsBackOnFailure(t *testing.T) {
	f := newFixture(t)
	s := f.newSession(t)
	if err := s.AutoFill("prefab 5.5.5", false); err != nil {
		t.Fatalf("autofill: %v", err)
	}

	runner := New(f.store, f.cfg)
	runner.txHook = func(tx document.Tx) document.Tx { return &failingTx{Tx: tx} }

	_, err := runner.Run(context.Background(), s)
	var tf *TransactionFailure
	if !errors.As(err, &tf) {
		t.Fatalf("err = %v, want *TransactionFailure", err)
	}
	if tf.State != StateGeneratingSheet {
		t.Errorf("failing state = %q, want generating_sheet", tf.State)
	}

	// Everything written before the failure was rolled back.
	if code, _ := f.store.TextParam(f.pipes[0], f.cfg.AnnotationFieldName); code != "" {
		t.Errorf("annotation survived rollback: %q", code)
	}
	if _, err := f.store.ViewByName("5.5.5"); !errors.Is(err, document.ErrNotFound) {
		t.Error("plan view survived rollback")
	}
	if _, err := f.store.SheetByNumber("5.5.5"); !errors.Is(err, document.ErrNotFound) {
		t.Error("sheet exists after rollback")
	}
}

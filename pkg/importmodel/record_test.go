package importmodel_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/relimport/pkg/importmodel"
)

func TestRecord_Form(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		rec  importmodel.Record
		want importmodel.Form
	}{
		{
			name: "bare",
			rec:  importmodel.Plain("import app1", "app1"),
			want: importmodel.BareImport{Name: "app1"},
		},
		{
			name: "dotted",
			rec:  importmodel.Plain("import src.app1", "src.app1"),
			want: importmodel.DottedImport{Segments: []string{"src", "app1"}},
		},
		{
			name: "qualified",
			rec:  importmodel.FromImport("from src.app1 import main", 0, "src.app1", "main"),
			want: importmodel.QualifiedImport{Combined: []string{"src", "app1", "main"}},
		},
		{
			name: "relative without module",
			rec:  importmodel.FromImport("from .. import app1", 2, "", "app1"),
			want: importmodel.RelativeImport{Level: 2, Combined: []string{"app1"}},
		},
		{
			name: "relative with module",
			rec:  importmodel.FromImport("from .src import app1", 1, "src", "app1"),
			want: importmodel.RelativeImport{Level: 1, Combined: []string{"src", "app1"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, tt.rec.Form())
		})
	}
}

func TestRecord_Validate(t *testing.T) {
	t.Parallel()

	valid := []importmodel.Record{
		importmodel.Plain("import a.b", "a.b"),
		importmodel.FromImport("from . import *", 1, "", importmodel.Wildcard),
		importmodel.FromImport("from a import b", 0, "a", "b"),
	}

	for _, rec := range valid {
		require.NoError(t, rec.Validate(), rec.Raw)
	}

	invalid := []importmodel.Record{
		{Raw: "x", Level: -1, Name: "a", From: true},
		{Raw: "x"},
		{Raw: "x", Level: 1, Name: "a"},
		{Raw: "x", Name: importmodel.Wildcard},
		{Raw: "x", Name: "a..b"},
		{Raw: "x", Name: "a", Module: "m", HasModule: true},
		{Raw: "x", Name: "a", HasModule: true, From: true},
	}

	for _, rec := range invalid {
		require.ErrorIs(t, rec.Validate(), importmodel.ErrContractViolation, "%+v", rec)
	}
}

func TestRecord_WithNameKeepsLevelAndModule(t *testing.T) {
	t.Parallel()

	rec := importmodel.FromImport("from ..pkg import a, b", 2, "pkg", "a")
	clone := rec.WithName("b")

	assert.Equal(t, 2, clone.Level)
	assert.Equal(t, "pkg", clone.Module)
	assert.Equal(t, "b", clone.Name)
	assert.Equal(t, "a", rec.Name)
}

func TestRecord_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "import a.b", importmodel.Plain("", "a.b").String())
	assert.Equal(t, "from ..pkg import x", importmodel.FromImport("", 2, "pkg", "x").String())
	assert.Equal(t, "from . import *", importmodel.FromImport("", 1, "", "*").String())
}

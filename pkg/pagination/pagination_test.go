package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestFromContext_Defaults(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	p := FromContext(c)

	if p.Page != 1 {
		t.Errorf("expected default page 1, got %d", p.Page)
	}
	if p.PerPage != DefaultPerPage {
		t.Errorf("expected default per_page %d, got %d", DefaultPerPage, p.PerPage)
	}
}

func TestFromContext_CustomValues(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/?page=3&per_page=50", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	p := FromContext(c)

	if p.Page != 3 {
		t.Errorf("expected page 3, got %d", p.Page)
	}
	if p.PerPage != 50 {
		t.Errorf("expected per_page 50, got %d", p.PerPage)
	}
}

func TestFromContext_LimitAlias(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/?limit=40", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	p := FromContext(c)

	if p.PerPage != 40 {
		t.Errorf("expected per_page 40 from limit alias, got %d", p.PerPage)
	}
}

func TestFromContext_MaxPerPage(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/?per_page=500", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	p := FromContext(c)

	if p.PerPage != MaxPerPage {
		t.Errorf("expected per_page capped at %d, got %d", MaxPerPage, p.PerPage)
	}
}

func TestFromContext_NegativePage(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/?page=-5", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	p := FromContext(c)

	if p.Page != 1 {
		t.Errorf("expected page 1 for negative input, got %d", p.Page)
	}
}

func TestOffset(t *testing.T) {
	tests := []struct {
		name   string
		params Params
		want   int
	}{
		{"first page", Params{Page: 1, PerPage: 25}, 0},
		{"second page", Params{Page: 2, PerPage: 25}, 25},
		{"fifth page", Params{Page: 5, PerPage: 10}, 40},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.params.Offset(); got != tt.want {
				t.Errorf("Offset() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestSQL(t *testing.T) {
	p := Params{Page: 3, PerPage: 20}
	expected := "LIMIT 20 OFFSET 40"
	if p.SQL() != expected {
		t.Errorf("expected %q, got %q", expected, p.SQL())
	}
}

func TestTotalPages(t *testing.T) {
	tests := []struct {
		name   string
		params Params
		total  int
		want   int
	}{
		{"exact fit", Params{Page: 1, PerPage: 25}, 50, 2},
		{"partial last page", Params{Page: 1, PerPage: 25}, 51, 3},
		{"single page", Params{Page: 1, PerPage: 25}, 10, 1},
		{"no results", Params{Page: 1, PerPage: 25}, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.params.TotalPages(tt.total); got != tt.want {
				t.Errorf("TotalPages(%d) = %d, want %d", tt.total, got, tt.want)
			}
		})
	}
}

func TestNewResponse(t *testing.T) {
	data := []string{"a", "b", "c"}
	r := NewResponse(data, 10, Params{Page: 1, PerPage: 3})

	if r.Total != 10 {
		t.Errorf("expected total 10, got %d", r.Total)
	}
	if r.Page != 1 {
		t.Errorf("expected page 1, got %d", r.Page)
	}
	if r.PerPage != 3 {
		t.Errorf("expected per_page 3, got %d", r.PerPage)
	}
	if r.TotalPages != 4 {
		t.Errorf("expected total_pages 4, got %d", r.TotalPages)
	}
}

func TestParams_HasNext(t *testing.T) {
	tests := []struct {
		name   string
		params Params
		total  int
		want   bool
	}{
		{"more results", Params{Page: 1, PerPage: 10}, 25, true},
		{"last full page", Params{Page: 3, PerPage: 10}, 25, false},
		{"past end", Params{Page: 4, PerPage: 10}, 25, false},
		{"no results", Params{Page: 1, PerPage: 10}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.params.HasNext(tt.total); got != tt.want {
				t.Errorf("HasNext() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParams_HasPrevious(t *testing.T) {
	tests := []struct {
		name   string
		params Params
		want   bool
	}{
		{"first page", Params{Page: 1, PerPage: 10}, false},
		{"second page", Params{Page: 2, PerPage: 10}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.params.HasPrevious(); got != tt.want {
				t.Errorf("HasPrevious() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParams_NextPage(t *testing.T) {
	p := Params{Page: 2, PerPage: 10}
	if got := p.NextPage(); got != 3 {
		t.Errorf("NextPage() = %d, want 3", got)
	}
}

func TestParams_PreviousPage(t *testing.T) {
	tests := []struct {
		name   string
		params Params
		want   int
	}{
		{"normal", Params{Page: 3, PerPage: 10}, 2},
		{"clamp to first", Params{Page: 1, PerPage: 10}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.params.PreviousPage(); got != tt.want {
				t.Errorf("PreviousPage() = %d, want %d", got, tt.want)
			}
		})
	}
}

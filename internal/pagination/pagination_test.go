package pagination

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func paramsFor(t *testing.T, rawQuery string) Params {
	t.Helper()
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/?"+rawQuery, nil)
	return FromQuery(c)
}

func TestFromQuery(t *testing.T) {
	cases := []struct {
		name     string
		query    string
		wantPage int
		wantSize int
	}{
		{"defaults", "", 1, DefaultPageSize},
		{"explicit", "page=3&page_size=50", 3, 50},
		{"zero page", "page=0", 1, DefaultPageSize},
		{"negative page", "page=-2", 1, DefaultPageSize},
		{"oversized", "page_size=1000", 1, MaxPageSize},
		{"garbage", "page=abc&page_size=xyz", 1, DefaultPageSize},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := paramsFor(t, tc.query)
			if got.Page != tc.wantPage || got.PageSize != tc.wantSize {
				t.Fatalf("params = %d/%d, want %d/%d", got.Page, got.PageSize, tc.wantPage, tc.wantSize)
			}
		})
	}
}

func TestOffset(t *testing.T) {
	p := Params{Page: 3, PageSize: 20}
	if p.Offset() != 40 {
		t.Fatalf("offset = %d, want 40", p.Offset())
	}
}

func TestOrderClause(t *testing.T) {
	allowed := map[string]struct{}{"address": {}, "created_at": {}}

	cases := []struct {
		requested string
		want      string
	}{
		{"", "address ASC"},
		{"address", "address ASC"},
		{"-address", "address DESC"},
		{"created_at", "created_at ASC"},
		{"-created_at", "created_at DESC"},
		{"owner_id", "address ASC"},
		{"-owner_id", "address ASC"},
		{"address; DROP TABLE users", "address ASC"},
		{"  created_at ", "created_at ASC"},
	}
	for _, tc := range cases {
		if got := OrderClause(tc.requested, allowed, "address"); got != tc.want {
			t.Fatalf("OrderClause(%q) = %q, want %q", tc.requested, got, tc.want)
		}
	}
}

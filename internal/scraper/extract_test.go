package scraper

import (
	"reflect"
	"regexp"
	"testing"
)

func TestExtractBetween(t *testing.T) {
	tests := []struct {
		name    string
		content string
		start   string
		end     string
		want    string
	}{
		{
			name:    "simple window",
			content: `<h1>沙丘：第三部</h1>`,
			start:   `<h1>`,
			end:     `</h1>`,
			want:    "沙丘：第三部",
		},
		{
			name:    "spans newlines",
			content: "<td>導演：</td>\n<td><p>\nDenis Villeneuve\n</p>",
			start:   `<td>導演：</td>`,
			end:     `</p>`,
			want:    "<td><p>\nDenis Villeneuve",
		},
		{
			name:    "first match wins",
			content: `<h2>A</h2><h2>B</h2>`,
			start:   `<h2>`,
			end:     `</h2>`,
			want:    "A",
		},
		{
			name:    "no match yields empty",
			content: `<h1>title</h1>`,
			start:   `<h3>`,
			end:     `</h3>`,
			want:    "",
		},
		{
			name:    "empty content",
			content: "",
			start:   `<h1>`,
			end:     `</h1>`,
			want:    "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractBetween(tt.content, tt.start, tt.end); got != tt.want {
				t.Errorf("ExtractBetween() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractAll(t *testing.T) {
	re := regexp.MustCompile(`<li>(.*?)</li>`)

	got := ExtractAll(`<ul><li> a </li><li>b</li><li></li></ul>`, re)
	want := []string{"a", "b", ""}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ExtractAll() = %v, want %v", got, want)
	}

	if got := ExtractAll("no list items here", re); len(got) != 0 {
		t.Errorf("expected no matches, got %v", got)
	}
}

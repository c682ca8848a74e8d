package catalog

import (
	"encoding/base64"
	"testing"
)

func TestEncodeSort(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"tiklama:DESC", "TjtfczoxMjoidGlrbGFtYTpERVNDIjs="},
		{"fiyat:ASC", "Tjtfczo5OiJmaXlhdDpBU0MiOw=="},
		{"", "TjtfczowOiIiOw=="},
	}
	for _, tt := range tests {
		if got := EncodeSort(tt.key); got != tt.want {
			t.Errorf("EncodeSort(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestEncodeSortCountsBytes(t *testing.T) {
	bs, err := base64.StdEncoding.DecodeString(EncodeSort("puan:ÇOK"))
	if err != nil {
		t.Fatal(err)
	}
	if got, want := string(bs), `N;_s:9:"puan:ÇOK";`; got != want {
		t.Errorf("decoded = %q, want %q", got, want)
	}
}

func TestSortAndPageURL(t *testing.T) {
	sortURL := SortURL("https://www.epey.com/akilli-telefonlar", DefaultSortKey)
	want := "https://www.epey.com/akilli-telefonlar/e/TjtfczoxMjoidGlrbGFtYTpERVNDIjs=/"
	if sortURL != want {
		t.Errorf("SortURL() = %q, want %q", sortURL, want)
	}
	if got := PageURL(sortURL, 1); got != sortURL {
		t.Errorf("PageURL(1) = %q, want %q", got, sortURL)
	}
	if got := PageURL(sortURL, 3); got != want+"3/" {
		t.Errorf("PageURL(3) = %q, want %q", got, want+"3/")
	}
}

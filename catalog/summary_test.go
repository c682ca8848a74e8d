package catalog

import "testing"

func TestExtractSummary(t *testing.T) {
	tests := []struct {
		name   string
		markup string
		want   Summary
	}{
		{
			name: "product with offers object",
			markup: `<script type="application/ld+json">
{"@context":"https://schema.org","@type":"Product","name":"Phone A",
 "offers":{"@type":"AggregateOffer","price":"54999.00","priceCurrency":"TRY"},
 "aggregateRating":{"@type":"AggregateRating","ratingValue":4.5,"reviewCount":120},}
</script>`,
			want: Summary{Price: "54999.00", Rating: "4.5"},
		},
		{
			name: "offers array and numeric price",
			markup: `<script type="application/ld+json">{"@type":"Product","offers":[{"price":12499}]}</script>
<script type="application/ld+json">{"@type":"Product","aggregateRating":{"ratingValue":"87"}}</script>`,
			want: Summary{Price: "12499", Rating: "87"},
		},
		{
			name:   "broken block is skipped",
			markup: `<script type="application/ld+json">{not json</script><p>hi</p>`,
			want:   Summary{},
		},
		{
			name:   "no JSON-LD",
			markup: `<html><body>plain</body></html>`,
			want:   Summary{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractSummary(tt.markup)
			if err != nil {
				t.Fatalf("ExtractSummary() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ExtractSummary() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

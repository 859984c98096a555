package dynamo

import (
	"reflect"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		item map[string]types.AttributeValue
		want map[string]any
	}{
		{
			name: "empty_item",
			item: nil,
			want: map[string]any{},
		},
		{
			name: "scalar_values",
			item: map[string]types.AttributeValue{
				"title":  &types.AttributeValueMemberS{Value: "Road works"},
				"count":  &types.AttributeValueMemberN{Value: "42"},
				"budget": &types.AttributeValueMemberN{Value: "1250.50"},
				"open":   &types.AttributeValueMemberBOOL{Value: true},
			},
			want: map[string]any{
				"title":  "Road works",
				"count":  42,
				"budget": 1250.50,
				"open":   true,
			},
		},
		{
			name: "string_set",
			item: map[string]types.AttributeValue{
				"tags": &types.AttributeValueMemberSS{Value: []string{"it", "services"}},
			},
			want: map[string]any{
				"tags": []string{"it", "services"},
			},
		},
		{
			name: "nested_map_and_list",
			item: map[string]types.AttributeValue{
				"contact": &types.AttributeValueMemberM{Value: map[string]types.AttributeValue{
					"name":  &types.AttributeValueMemberS{Value: "A. Bwalya"},
					"phone": &types.AttributeValueMemberS{Value: "+27 11 000 0000"},
				}},
				"documents": &types.AttributeValueMemberL{Value: []types.AttributeValue{
					&types.AttributeValueMemberS{Value: "spec.pdf"},
					&types.AttributeValueMemberN{Value: "3"},
				}},
			},
			want: map[string]any{
				"contact": map[string]any{
					"name":  "A. Bwalya",
					"phone": "+27 11 000 0000",
				},
				"documents": []any{"spec.pdf", 3},
			},
		},
		{
			name: "unsupported_tags_skipped",
			item: map[string]types.AttributeValue{
				"title": &types.AttributeValueMemberS{Value: "Kept"},
				"blob":  &types.AttributeValueMemberB{Value: []byte{0x01}},
				"null":  &types.AttributeValueMemberNULL{Value: true},
				"nums":  &types.AttributeValueMemberNS{Value: []string{"1", "2"}},
			},
			want: map[string]any{
				"title": "Kept",
			},
		},
		{
			name: "unparseable_number_skipped",
			item: map[string]types.AttributeValue{
				"bad":  &types.AttributeValueMemberN{Value: "not-a-number"},
				"good": &types.AttributeValueMemberN{Value: "7"},
			},
			want: map[string]any{
				"good": 7,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.item)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Normalize() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

package dynamo

import (
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Normalize converts a DynamoDB item into a plain nested map. Tagged values
// the service never stores (binary, number sets, NULL) are skipped rather
// than reported: a lossy but total conversion.
func Normalize(item map[string]types.AttributeValue) map[string]any {
	result := make(map[string]any, len(item))
	for key, av := range item {
		if value, ok := normalizeValue(av); ok {
			result[key] = value
		}
	}
	return result
}

func normalizeValue(av types.AttributeValue) (any, bool) {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		return v.Value, true
	case *types.AttributeValueMemberN:
		return parseNumber(v.Value)
	case *types.AttributeValueMemberBOOL:
		return v.Value, true
	case *types.AttributeValueMemberSS:
		return append([]string(nil), v.Value...), true
	case *types.AttributeValueMemberM:
		return Normalize(v.Value), true
	case *types.AttributeValueMemberL:
		list := make([]any, 0, len(v.Value))
		for _, el := range v.Value {
			if value, ok := normalizeValue(el); ok {
				list = append(list, value)
			}
		}
		return list, true
	default:
		return nil, false
	}
}

// Numbers with a decimal point become float64, everything else int.
func parseNumber(raw string) (any, bool) {
	if strings.Contains(raw, ".") {
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, false
		}
		return f, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		f, ferr := strconv.ParseFloat(raw, 64)
		if ferr != nil {
			return nil, false
		}
		return f, true
	}
	return n, true
}

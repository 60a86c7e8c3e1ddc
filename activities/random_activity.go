package activities

import (
	"context"
	"crypto/rand"
	"fmt"
	mathrand "math/rand"
	"strings"
	"time"

	"github.com/deepnoodle-ai/dagflow"
)

// RandomInput defines the input parameters for the random activity
type RandomInput struct {
	Type    string   `json:"type"`    // uuid, number, float, string, choice, boolean, hex
	Min     float64  `json:"min"`     // minimum value for number generation
	Max     float64  `json:"max"`     // maximum value for number generation
	Length  int      `json:"length"`  // length for string generation
	Choices []string `json:"choices"` // choices for selection
	Count   int      `json:"count"`   // number of items to generate
	Charset string   `json:"charset"` // character set for string generation
	Seed    int64    `json:"seed"`    // seed for reproducible randomness
}

// RandomActivity generates random values
type RandomActivity struct{}

func NewRandomActivity() dagflow.Activity {
	return dagflow.NewTypedActivity(&RandomActivity{})
}

func (a *RandomActivity) Name() string {
	return "random"
}

func (a *RandomActivity) Execute(ctx context.Context, params RandomInput) (any, error) {
	if params.Type == "" {
		params.Type = "uuid"
	}

	var rng *mathrand.Rand
	if params.Seed != 0 {
		rng = mathrand.New(mathrand.NewSource(params.Seed))
	} else {
		rng = mathrand.New(mathrand.NewSource(time.Now().UnixNano()))
	}

	count := params.Count
	if count <= 0 {
		count = 1
	}

	var values []any
	for i := 0; i < count; i++ {
		var value any
		var err error

		switch strings.ToLower(params.Type) {
		case "uuid", "guid":
			value, err = generateUUID()

		case "number", "int", "integer":
			min, max := params.Min, params.Max
			if max <= min {
				max = min + 100
			}
			value = rng.Intn(int(max)-int(min)+1) + int(min)

		case "float", "decimal":
			min, max := params.Min, params.Max
			if max <= min {
				max = min + 1.0
			}
			value = min + rng.Float64()*(max-min)

		case "string", "text", "alphanumeric":
			length := params.Length
			if length <= 0 {
				length = 10
			}
			charset := params.Charset
			if charset == "" {
				charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
			}
			value = randomString(rng, length, charset)

		case "hex":
			length := params.Length
			if length <= 0 {
				length = 8
			}
			value = randomString(rng, length, "0123456789abcdef")

		case "choice", "select":
			if len(params.Choices) == 0 {
				err = fmt.Errorf("choices cannot be empty for choice type")
			} else {
				value = params.Choices[rng.Intn(len(params.Choices))]
			}

		case "boolean", "bool":
			value = rng.Intn(2) == 1

		default:
			err = fmt.Errorf("unsupported type: %s", params.Type)
		}
		if err != nil {
			return nil, err
		}
		values = append(values, value)
	}

	if count == 1 {
		return values[0], nil
	}
	return values, nil
}

// generateUUID generates a random UUID v4
func generateUUID() (string, error) {
	uuid := make([]byte, 16)
	if _, err := rand.Read(uuid); err != nil {
		return "", err
	}
	uuid[6] = (uuid[6] & 0x0f) | 0x40
	uuid[8] = (uuid[8] & 0x3f) | 0x80
	return fmt.Sprintf("%x-%x-%x-%x-%x", uuid[0:4], uuid[4:6], uuid[6:8], uuid[8:10], uuid[10:]), nil
}

func randomString(rng *mathrand.Rand, length int, charset string) string {
	result := make([]byte, length)
	for i := range result {
		result[i] = charset[rng.Intn(len(charset))]
	}
	return string(result)
}

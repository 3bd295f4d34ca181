package smoketest

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/irakobi/wildlife-conservation-backend/internal/domain/form"
)

const randomFloatDivisor = 1000000

// getRandomFloat returns a random float64 between 0.0 and 1.0 using crypto/rand.
func getRandomFloat() float64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(randomFloatDivisor))
	return float64(n.Int64()) / float64(randomFloatDivisor)
}

func randomInt(n int) int {
	if n <= 0 {
		return 0
	}
	v, _ := rand.Int(rand.Reader, big.NewInt(int64(n)))
	return int(v.Int64())
}

// generateSubmission builds one payload answering every question in the
// schema with a plausible random value.
func generateSubmission(schema *form.Schema) map[string]any {
	data := make(map[string]any, len(schema.Questions)+1)
	data["_uuid"] = uuid.NewString()

	for i := range schema.Questions {
		q := &schema.Questions[i]
		if v := randomAnswer(q); v != nil {
			data[q.Name] = v
		}
	}
	return data
}

// randomAnswer produces a value matching the question's type, or nil for
// types a smoke test cannot fabricate (media attachments).
func randomAnswer(q *form.Question) any {
	switch q.Type {
	case form.TypeNumber, form.TypeRange:
		return fmt.Sprintf("%d", randomInt(100))
	case form.TypeDecimal:
		return fmt.Sprintf("%.2f", getRandomFloat()*100)
	case form.TypeDate:
		return time.Now().UTC().Format("2006-01-02")
	case form.TypeDatetime:
		return time.Now().UTC().Format(time.RFC3339)
	case form.TypeTime:
		return time.Now().UTC().Format("15:04:05")
	case form.TypeSingleChoice:
		if len(q.Choices) == 0 {
			return nil
		}
		return q.Choices[randomInt(len(q.Choices))].Value
	case form.TypeMultipleChoice:
		if len(q.Choices) == 0 {
			return nil
		}
		picked := q.Choices[randomInt(len(q.Choices))].Value
		return picked
	case form.TypeLocation:
		// Somewhere in the Serengeti.
		lat := -2.0 - getRandomFloat()
		lon := 34.0 + getRandomFloat()*2
		return fmt.Sprintf("%.6f %.6f 1500 5.0", lat, lon)
	case form.TypePhoto, form.TypeAudio, form.TypeVideo, form.TypeFile:
		return nil
	case form.TypeAcknowledge:
		return "OK"
	case form.TypeBarcode:
		return fmt.Sprintf("SMOKE-%06d", randomInt(1000000))
	default:
		return "smoke test answer " + uuid.NewString()[:8]
	}
}

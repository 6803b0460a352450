package enrich

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormat_Defaults(t *testing.T) {
	out := Format(Result{Profile: &Profile{ID: 42}})
	assert.Equal(t, strings.Join([]string{
		"id: 42",
		"username: None",
		"first_name: N/A",
		"last_name: N/A",
		"full_name: N/A",
		"is_premium: N/A",
		"language_code: N/A",
		"bio: N/A",
	}, "\n"), out)
}

func TestFormat_FullProfile(t *testing.T) {
	premium := true
	out := Format(Result{
		Profile: &Profile{
			ID: 7, Username: "ann", FirstName: "Ann", LastName: "Lee",
			Bio: "hello", LanguageCode: "en", IsPremium: &premium,
		},
		PhotoPaths: []string{"7_photo_0.jpg", "7_photo_1.jpg"},
		MediaLog:   []string{"Media: voice"},
	})

	assert.Contains(t, out, "full_name: Ann Lee")
	assert.Contains(t, out, "is_premium: true")
	assert.Contains(t, out, "Photos downloaded: 7_photo_0.jpg, 7_photo_1.jpg")
	assert.Contains(t, out, "Media log: Media: voice")
}

func TestRender_Heading(t *testing.T) {
	out := Render(Result{Mode: FirstReply, Err: errors.New("x")})
	assert.True(t, strings.HasPrefix(out, "Fresh profile:\n"))
	assert.Equal(t, "Profile:", FirstContact.Heading())
	assert.Equal(t, "Lookup:", OnDemand.Heading())
}

package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/cardscan/internal/model"
)

func validContact() model.ExtractedContact {
	return model.ExtractedContact{
		Name:         "Jane Doe",
		PrimaryEmail: "jane@acme.com",
		PrimaryPhone: "5551234567",
		Website:      "https://acme.com",
		Address:      "1 Main St",
	}
}

func TestValidate_CleanContact(t *testing.T) {
	assert.NoError(t, Validate(validContact(), true))
}

func TestValidate_CollectsAllViolations(t *testing.T) {
	err := Validate(model.ExtractedContact{
		Name:         "",
		PrimaryEmail: "bad",
		PrimaryPhone: "123",
	}, true)
	require.Error(t, err)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.GreaterOrEqual(t, len(verr.Violations), 3)
}

func TestValidate_SecondaryFieldsOptional(t *testing.T) {
	c := validContact()
	c.SecondaryEmail = ""
	c.SecondaryPhone = ""
	assert.NoError(t, Validate(c, true))

	c.SecondaryEmail = "not-an-email"
	c.SecondaryPhone = "911"
	err := Validate(c, true)
	require.Error(t, err)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Violations, 2)
}

func TestValidate_PlaceholderPolicy(t *testing.T) {
	unreadable := model.ExtractedContact{
		Name:         model.FallbackName,
		PrimaryEmail: model.FallbackEmail,
		PrimaryPhone: model.FallbackPhone,
		Website:      model.FallbackWebsite,
		Address:      model.FallbackAddress,
	}

	// Accepted by default so unreadable cards still get a row.
	assert.NoError(t, Validate(unreadable, true))

	err := Validate(unreadable, false)
	require.Error(t, err)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Violations, 3)
}

func TestCleanWebsite(t *testing.T) {
	assert.Equal(t, "acme.com", CleanWebsite("https://www.acme.com/"))
	assert.Equal(t, "acme.com", CleanWebsite("http://acme.com"))
	assert.Equal(t, "acme.com/about", CleanWebsite("acme.com/about"))
	assert.Equal(t, "", CleanWebsite(""))
}

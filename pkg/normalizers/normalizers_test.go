package normalizers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeFacilityName(t *testing.T) {
	t.Run("strips clinical suffixes", func(t *testing.T) {
		assert.Equal(t, "happy paws", NormalizeFacilityName("Happy Paws Veterinary Clinic"))
		assert.Equal(t, "happy paws", NormalizeFacilityName("Happy Paws Veterinary"))
		assert.Equal(t, "happy paws", NormalizeFacilityName("Happy Paws Animal Hospital"))
	})

	t.Run("strips corporate suffixes and punctuation", func(t *testing.T) {
		assert.Equal(t, "happy paws", NormalizeFacilityName("Happy Paws Veterinary Clinic, LLC"))
		assert.Equal(t, "westside", NormalizeFacilityName("Westside Vet Clinic Inc."))
	})

	t.Run("keeps internal hyphens", func(t *testing.T) {
		assert.Equal(t, "smith-jones", NormalizeFacilityName("Smith-Jones Animal Clinic"))
	})

	t.Run("does not strip suffix tokens mid-word", func(t *testing.T) {
		// "western" contains no whole-word "west"; "incline" contains no "inc"
		assert.Equal(t, "incline village", NormalizeFacilityName("Incline Village Clinic"))
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Equal(t, "", NormalizeFacilityName(""))
		assert.Equal(t, "", NormalizeFacilityName("   "))
	})

	t.Run("idempotent", func(t *testing.T) {
		inputs := []string{"Happy Paws Veterinary Clinic, LLC", "Smith-Jones Animal Clinic", "ACME Vet Hospital"}
		for _, in := range inputs {
			once := NormalizeFacilityName(in)
			assert.Equal(t, once, NormalizeFacilityName(once))
		}
	})
}

func TestNormalizePhone(t *testing.T) {
	t.Run("strips formatting", func(t *testing.T) {
		assert.Equal(t, "6145551234", NormalizePhone("(614) 555-1234"))
		assert.Equal(t, "6145551234", NormalizePhone("614.555.1234"))
	})

	t.Run("drops leading country code", func(t *testing.T) {
		assert.Equal(t, "6145551234", NormalizePhone("1-614-555-1234"))
		assert.Equal(t, "6145551234", NormalizePhone("16145551234"))
	})

	t.Run("keeps trailing ten digits", func(t *testing.T) {
		assert.Equal(t, "6145551234", NormalizePhone("+44 16145551234"))
	})

	t.Run("short numbers pass through", func(t *testing.T) {
		assert.Equal(t, "5551234", NormalizePhone("555-1234"))
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Equal(t, "", NormalizePhone(""))
		assert.Equal(t, "", NormalizePhone("ext"))
	})

	t.Run("idempotent", func(t *testing.T) {
		once := NormalizePhone("(614) 555-1234")
		assert.Equal(t, once, NormalizePhone(once))
	})
}

func TestNormalizeAddress(t *testing.T) {
	t.Run("abbreviates long-form tokens", func(t *testing.T) {
		assert.Equal(t, "123 main st", NormalizeAddress("123 Main Street"))
		assert.Equal(t, "123 main st", NormalizeAddress("123 Main St."))
		assert.Equal(t, "450 n high ave ste 200", NormalizeAddress("450 North High Avenue, Suite #200"))
	})

	t.Run("does not rewrite partial words", func(t *testing.T) {
		assert.Equal(t, "12 westerly dr", NormalizeAddress("12 Westerly Drive"))
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Equal(t, "", NormalizeAddress(""))
	})

	t.Run("idempotent", func(t *testing.T) {
		inputs := []string{"123 Main Street", "450 North High Avenue, Suite #200"}
		for _, in := range inputs {
			once := NormalizeAddress(in)
			assert.Equal(t, once, NormalizeAddress(once))
		}
	})
}

func TestNormalizeName(t *testing.T) {
	t.Run("strips credential suffixes", func(t *testing.T) {
		assert.Equal(t, "jane smith", NormalizeName("Jane Smith, DVM"))
		assert.Equal(t, "robert jones", NormalizeName("Robert Jones Jr."))
	})

	t.Run("keeps hyphenated names", func(t *testing.T) {
		assert.Equal(t, "mary smith-jones", NormalizeName("Mary Smith-Jones"))
	})

	t.Run("idempotent", func(t *testing.T) {
		once := NormalizeName("Jane Smith, DVM")
		assert.Equal(t, once, NormalizeName(once))
	})
}

func TestNormalizeZipCode(t *testing.T) {
	assert.Equal(t, "43215", NormalizeZipCode("43215"))
	assert.Equal(t, "432151234", NormalizeZipCode("43215-1234"))
	assert.Equal(t, "", NormalizeZipCode("432"))
	assert.Equal(t, "", NormalizeZipCode(""))
}

func TestRegistry(t *testing.T) {
	t.Run("built-ins registered", func(t *testing.T) {
		for _, name := range []string{"lowercase", "trim", "nphone", "nfacility", "nname", "naddress", "nzip", "digits_only"} {
			_, ok := Get(name)
			assert.True(t, ok, name)
		}
	})

	t.Run("apply unknown is passthrough", func(t *testing.T) {
		assert.Equal(t, "Value", Apply("Value", "nope"))
	})

	t.Run("apply chain", func(t *testing.T) {
		assert.Equal(t, "6145551234", ApplyChain(" (614) 555-1234 ", "trim", "nphone"))
	})
}

package units

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"
)

// UnitsTestSuite tests size string parsing and formatting
type UnitsTestSuite struct {
	suite.Suite
}

// TestParseGigabytes tests the identity conversion
func (s *UnitsTestSuite) TestParseGigabytes() {
	got, err := ParseSize("100G")
	s.Require().NoError(err)
	s.Equal(100.0, got)
}

// TestParseTerabytes tests conversion from terabytes
func (s *UnitsTestSuite) TestParseTerabytes() {
	got, err := ParseSize("1T")
	s.Require().NoError(err)
	s.Equal(1000.0, got)
}

// TestParseMegabytes tests conversion from megabytes
func (s *UnitsTestSuite) TestParseMegabytes() {
	got, err := ParseSize("500M")
	s.Require().NoError(err)
	s.Equal(0.5, got)
}

// TestParseKilobytesAndPetabytes tests the extreme units
func (s *UnitsTestSuite) TestParseKilobytesAndPetabytes() {
	got, err := ParseSize("1K")
	s.Require().NoError(err)
	s.Equal(1e-6, got)

	got, err = ParseSize("2P")
	s.Require().NoError(err)
	s.Equal(2e6, got)
}

// TestParseFractional tests fractional size values
func (s *UnitsTestSuite) TestParseFractional() {
	got, err := ParseSize("1.5T")
	s.Require().NoError(err)
	s.Equal(1500.0, got)
}

// TestParseDeterministic tests that repeated parses agree
func (s *UnitsTestSuite) TestParseDeterministic() {
	first, err := ParseSize("42.25G")
	s.Require().NoError(err)
	second, err := ParseSize("42.25G")
	s.Require().NoError(err)
	s.Equal(first, second)
}

// TestParseUnknownUnit tests rejection of unrecognized unit letters
func (s *UnitsTestSuite) TestParseUnknownUnit() {
	_, err := ParseSize("100X")
	s.Require().Error(err)

	var invalidUnit InvalidUnitError
	s.True(errors.As(err, &invalidUnit))
	s.Equal("100X", invalidUnit.Input)
}

// TestParseMissingUnit tests rejection of bare numbers
func (s *UnitsTestSuite) TestParseMissingUnit() {
	_, err := ParseSize("100")
	var invalidUnit InvalidUnitError
	s.True(errors.As(err, &invalidUnit))
}

// TestParseBadNumber tests rejection of garbage before the unit
func (s *UnitsTestSuite) TestParseBadNumber() {
	for _, input := range []string{"", "G", "abcG", "-5G", "1..2T"} {
		_, err := ParseSize(input)
		s.Error(err, "input %q should not parse", input)
	}
}

// TestFormatGB tests the human-readable rendering
func (s *UnitsTestSuite) TestFormatGB() {
	s.Equal("100 GB", FormatGB(100))
	s.Equal("500 MB", FormatGB(0.5))
}

// TestUnitsSuite runs the units test suite
func TestUnitsSuite(t *testing.T) {
	suite.Run(t, new(UnitsTestSuite))
}

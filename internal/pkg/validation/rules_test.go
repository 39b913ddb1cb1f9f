package validation

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const campusPattern = `^[a-zA-Z0-9._%+-]+@([a-zA-Z0-9-]+\.)*shanghaitech\.edu\.cn$`

func TestCampusEmail(t *testing.T) {
	ce, err := NewCampusEmail(campusPattern)
	require.NoError(t, err)

	assert.True(t, ce.Match("alice@shanghaitech.edu.cn"))
	assert.True(t, ce.Match("  Bob@Student.ShanghaiTech.edu.cn "))
	assert.False(t, ce.Match("eve@gmail.com"))
	assert.False(t, ce.Match("eve@shanghaitech.edu.cn.evil.com"))
}

func TestCampusEmail_Register(t *testing.T) {
	ce, err := NewCampusEmail(campusPattern)
	require.NoError(t, err)

	v := validator.New()
	require.NoError(t, ce.Register(v))
	require.NoError(t, RegisterCommon(v))

	type req struct {
		Email string `validate:"required,campus_email"`
		Name  string `validate:"notblank"`
	}

	assert.NoError(t, v.Struct(req{Email: "a@shanghaitech.edu.cn", Name: "x"}))
	assert.Error(t, v.Struct(req{Email: "a@example.com", Name: "x"}))
	assert.Error(t, v.Struct(req{Email: "a@shanghaitech.edu.cn", Name: "   "}))
}

func TestNewCampusEmail_BadPattern(t *testing.T) {
	_, err := NewCampusEmail("(")
	assert.Error(t, err)
}

func TestTags(t *testing.T) {
	assert.Equal(t, []string{"go", "chess", "go"}, NormalizeTags([]string{" go ", "", "chess", "go"}))
	assert.Equal(t, []string{"go", "chess"}, UniqueTags([]string{" go ", "", "chess", "go"}))
	assert.Empty(t, NormalizeTags(nil))

	assert.NoError(t, CheckTags([]string{"ok"}))
	assert.Error(t, CheckTags([]string{"0123456789012345678901234567890"}))
	assert.Error(t, CheckTags(make([]string, MaxTags+1)))
}

package ncf_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lavanflow/ncf-api/pkg/ncf"
)

func TestValidateRNC(t *testing.T) {
	assert.NoError(t, ncf.ValidateRNC("1-01-85004-3"))
	assert.NoError(t, ncf.ValidateRNC("101850043"))
	assert.Error(t, ncf.ValidateRNC("101850042"), "dígito verificador incorrecto")
	assert.Error(t, ncf.ValidateRNC("1018500"), "longitud incorrecta")
}

func TestComputeRNCCheckDigit(t *testing.T) {
	d, err := ncf.ComputeRNCCheckDigit("10185004")
	require.NoError(t, err)
	assert.Equal(t, byte('3'), d)

	_, err = ncf.ComputeRNCCheckDigit("123")
	assert.Error(t, err)
}

func TestValidateCedula(t *testing.T) {
	assert.NoError(t, ncf.ValidateCedula("001-1391820-5"))
	assert.Error(t, ncf.ValidateCedula("00113918204"))
}

func TestValidateTaxID_DespachaPorLongitud(t *testing.T) {
	assert.NoError(t, ncf.ValidateTaxID("101850043"))
	assert.NoError(t, ncf.ValidateTaxID("00113918205"))
	assert.Error(t, ncf.ValidateTaxID("12345"))
}

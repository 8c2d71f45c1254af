package programs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"magangku_backend/internals/features/finance/installments/money"
)

func TestReadSeedFile(t *testing.T) {
	f, err := ReadSeedFile("data_programs.json")
	require.NoError(t, err)
	require.Len(t, f.Programs, 2)

	infos, err := f.RegistrationInfos()
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, money.FromMinor(4_000_000), infos[0].TotalAmount)
	assert.Equal(t, 4, infos[0].Plan)
	assert.Equal(t, 6, infos[1].Plan)
	assert.Equal(t, "Dimas Pratama", infos[1].FullName)
}

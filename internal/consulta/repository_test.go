package consulta

import (
	"sync"
	"testing"
	"time"

	"github.com/KromaEnergia/painel-fiscal/internal/fiscal"
	"github.com/KromaEnergia/painel-fiscal/internal/utils/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func novoJob(t *testing.T, db *gorm.DB, repo Repository) Consulta {
	t.Helper()
	cs := []Consulta{{EscritorioID: 7, ClienteID: 1, Orgao: fiscal.OrgaoFederal, Status: StatusPendente}}
	require.NoError(t, repo.Criar(db, cs))
	require.NotEmpty(t, cs[0].ID)
	return cs[0]
}

func TestRepositorio_ReivindicarUmaVez(t *testing.T) {
	db := dbtest.Abrir(t, &Consulta{})
	repo := NewRepository()
	job := novoJob(t, db, repo)
	agora := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	ok, err := repo.Reivindicar(db, job.ID, agora)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Reivindicar(db, job.ID, agora)
	require.NoError(t, err)
	assert.False(t, ok, "entrega duplicada não pode reprocessar o job")

	c, err := repo.Carregar(db, job.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusProcessando, c.Status)
	assert.Equal(t, 1, c.Tentativas)
	assert.NotNil(t, c.IniciadaEm)
}

func TestRepositorio_ReivindicarConcorrente(t *testing.T) {
	db := dbtest.Abrir(t, &Consulta{})
	repo := NewRepository()
	job := novoJob(t, db, repo)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		vitorias int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repo.Reivindicar(db, job.ID, time.Now())
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				vitorias++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, vitorias)
}

func TestRepositorio_FinalizarSoEmProcessamento(t *testing.T) {
	db := dbtest.Abrir(t, &Consulta{})
	repo := NewRepository()
	job := novoJob(t, db, repo)
	fim := Resultado{Status: StatusConcluida, Situacao: fiscal.SituacaoNegativa, CodigoRetorno: 200, FinalizadaEm: time.Now()}

	assert.ErrorIs(t, repo.Finalizar(db, job.ID, fim), gorm.ErrRecordNotFound)

	ok, err := repo.Reivindicar(db, job.ID, time.Now())
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, repo.Finalizar(db, job.ID, fim))

	c, err := repo.Carregar(db, job.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusConcluida, c.Status)
	assert.Equal(t, fiscal.SituacaoNegativa, c.Situacao)
	assert.Equal(t, 200, c.CodigoRetorno)

	assert.ErrorIs(t, repo.Finalizar(db, job.ID, Resultado{Status: StatusErro}), gorm.ErrRecordNotFound)
	assert.ErrorIs(t, repo.VoltarParaFila(db, job.ID, "timeout"), gorm.ErrRecordNotFound)
}

func TestRepositorio_VoltarParaFila(t *testing.T) {
	db := dbtest.Abrir(t, &Consulta{})
	repo := NewRepository()
	job := novoJob(t, db, repo)

	ok, err := repo.Reivindicar(db, job.ID, time.Now())
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, repo.VoltarParaFila(db, job.ID, "portal instável"))

	c, err := repo.Carregar(db, job.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPendente, c.Status)
	assert.Equal(t, "portal instável", c.Erro)
	assert.Nil(t, c.IniciadaEm)

	// worker atrasado não sobrescreve o job devolvido
	assert.ErrorIs(t, repo.Finalizar(db, job.ID, Resultado{Status: StatusErro}), gorm.ErrRecordNotFound)

	ok, err = repo.Reivindicar(db, job.ID, time.Now())
	require.NoError(t, err)
	assert.True(t, ok)
	c, err = repo.Carregar(db, job.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Tentativas)
}

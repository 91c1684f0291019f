package consulta

import (
	"context"
	"sync"
	"time"

	"github.com/KromaEnergia/painel-fiscal/internal/cliente"
	"github.com/KromaEnergia/painel-fiscal/internal/cnd"
	"github.com/KromaEnergia/painel-fiscal/internal/fiscal"
	"github.com/KromaEnergia/painel-fiscal/internal/infosimples"
	"github.com/KromaEnergia/painel-fiscal/internal/notificacao"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type fakeConsultas struct {
	mu        sync.Mutex
	consultas map[string]*Consulta
	ordem     []string
}

func novoFakeConsultas() *fakeConsultas {
	return &fakeConsultas{consultas: map[string]*Consulta{}}
}

func (f *fakeConsultas) add(c Consulta) *Consulta {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Status == "" {
		c.Status = StatusPendente
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = time.Now()
	}
	f.consultas[c.ID] = &c
	f.ordem = append(f.ordem, c.ID)
	return &c
}

func (f *fakeConsultas) get(id string) Consulta {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.consultas[id]
}

func (f *fakeConsultas) Criar(_ *gorm.DB, cs []Consulta) error {
	for i := range cs {
		cs[i].ID = uuid.NewString()
		f.add(cs[i])
	}
	return nil
}

func (f *fakeConsultas) BuscarPorID(_ *gorm.DB, escritorioID uint, id string) (*Consulta, error) {
	c, err := f.Carregar(nil, id)
	if err != nil || c.EscritorioID != escritorioID {
		return nil, gorm.ErrRecordNotFound
	}
	return c, nil
}

func (f *fakeConsultas) Carregar(_ *gorm.DB, id string) (*Consulta, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.consultas[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeConsultas) Listar(_ *gorm.DB, escritorioID uint, fl Filtro) ([]Consulta, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	status := map[Status]bool{}
	for _, s := range fl.Status {
		status[s] = true
	}
	var out []Consulta
	for _, id := range f.ordem {
		c := f.consultas[id]
		if c.EscritorioID != escritorioID {
			continue
		}
		if len(status) > 0 && !status[c.Status] {
			continue
		}
		if fl.ClienteID != 0 && c.ClienteID != fl.ClienteID {
			continue
		}
		out = append(out, *c)
	}
	return out, nil
}

func (f *fakeConsultas) BuscarAberta(_ *gorm.DB, clienteID uint, orgao fiscal.Orgao) (*Consulta, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range f.ordem {
		c := f.consultas[id]
		if c.ClienteID == clienteID && c.Orgao == orgao && c.Aberta() {
			cp := *c
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeConsultas) Reivindicar(_ *gorm.DB, id string, agora time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.consultas[id]
	if !ok || c.Status != StatusPendente {
		return false, nil
	}
	c.Status = StatusProcessando
	c.IniciadaEm = &agora
	c.Tentativas++
	return true, nil
}

func (f *fakeConsultas) Finalizar(_ *gorm.DB, id string, r Resultado) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.consultas[id]
	if !ok || c.Status != StatusProcessando {
		return gorm.ErrRecordNotFound
	}
	c.Status = r.Status
	c.Erro = r.Erro
	c.CodigoRetorno = r.CodigoRetorno
	c.Situacao = r.Situacao
	c.CertidaoID = r.CertidaoID
	fim := r.FinalizadaEm
	c.FinalizadaEm = &fim
	return nil
}

func (f *fakeConsultas) VoltarParaFila(_ *gorm.DB, id, motivo string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.consultas[id]
	if !ok || c.Status != StatusProcessando {
		return gorm.ErrRecordNotFound
	}
	c.Status = StatusPendente
	c.Erro = motivo
	c.IniciadaEm = nil
	c.UpdatedAt = time.Now()
	return nil
}

func (f *fakeConsultas) ListarTravadas(_ *gorm.DB, antes time.Time) ([]Consulta, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Consulta
	for _, id := range f.ordem {
		c := f.consultas[id]
		if c.Status == StatusProcessando && c.IniciadaEm != nil && c.IniciadaEm.Before(antes) {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeConsultas) ListarPendentes(_ *gorm.DB, antes time.Time) ([]Consulta, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Consulta
	for _, id := range f.ordem {
		c := f.consultas[id]
		if c.Status == StatusPendente && c.UpdatedAt.Before(antes) {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeConsultas) ContarAbertas(_ *gorm.DB, escritorioID uint) (int64, error) {
	cs, _ := f.Listar(nil, escritorioID, Filtro{Status: []Status{StatusPendente, StatusProcessando}})
	return int64(len(cs)), nil
}

type fakeCertidoes struct {
	mu        sync.Mutex
	certidoes []cnd.Certidao
}

func (f *fakeCertidoes) Salvar(_ *gorm.DB, c *cnd.Certidao) error { return f.Substituir(nil, c) }

func (f *fakeCertidoes) Substituir(_ *gorm.DB, c *cnd.Certidao) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, atual := range f.certidoes {
		if atual.ClienteID == c.ClienteID && atual.Orgao == c.Orgao {
			c.ID = atual.ID
			f.certidoes[i] = *c
			return nil
		}
	}
	c.ID = uint(len(f.certidoes) + 1)
	f.certidoes = append(f.certidoes, *c)
	return nil
}

func (f *fakeCertidoes) BuscarPorID(_ *gorm.DB, escritorioID, id uint) (*cnd.Certidao, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.certidoes {
		if c.ID == id && c.EscritorioID == escritorioID {
			cp := c
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeCertidoes) Listar(_ *gorm.DB, escritorioID uint, _ cnd.Filtro) ([]cnd.Certidao, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []cnd.Certidao
	for _, c := range f.certidoes {
		if c.EscritorioID == escritorioID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeCertidoes) ListarValidadeAte(_ *gorm.DB, limite time.Time) ([]cnd.Certidao, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []cnd.Certidao
	for _, c := range f.certidoes {
		if c.DataValidade != nil && !c.DataValidade.After(limite) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeCertidoes) Deletar(_ *gorm.DB, _, _ uint) error { return nil }

type fakeClientes map[uint]cliente.Cliente

func (f fakeClientes) BuscarPorID(_ *gorm.DB, escritorioID, id uint) (*cliente.Cliente, error) {
	c, ok := f[id]
	if !ok || c.EscritorioID != escritorioID {
		return nil, gorm.ErrRecordNotFound
	}
	return &c, nil
}

func (f fakeClientes) Listar(_ *gorm.DB, escritorioID uint, _ cliente.Filtro) ([]cliente.Cliente, error) {
	var out []cliente.Cliente
	for id := uint(1); id <= uint(len(f))+10; id++ {
		if c, ok := f[id]; ok && c.EscritorioID == escritorioID && c.Ativo {
			out = append(out, c)
		}
	}
	return out, nil
}

func novoCliente(id, escritorioID uint, uf, municipio string) cliente.Cliente {
	c := cliente.Cliente{
		EscritorioID: escritorioID,
		RazaoSocial:  "Cliente " + string(rune('A'+id-1)),
		CNPJ:         "11222333000181",
		UF:           uf,
		Municipio:    municipio,
		Ativo:        true,
	}
	c.ID = id
	return c
}

// fakeConsultor devolve respostas por órgão em sequência; a última se repete.
type fakeConsultor struct {
	mu        sync.Mutex
	respostas map[fiscal.Orgao][]*infosimples.Resposta
	err       error
	chamadas  int
}

func (f *fakeConsultor) Consultar(_ context.Context, orgao fiscal.Orgao, _ infosimples.Parametros) (*infosimples.Resposta, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chamadas++
	if f.err != nil {
		return nil, f.err
	}
	rs := f.respostas[orgao]
	if len(rs) == 0 {
		return &infosimples.Resposta{Code: 200, Data: []map[string]interface{}{{"tipo": "Certidão Negativa"}}}, nil
	}
	r := rs[0]
	if len(rs) > 1 {
		f.respostas[orgao] = rs[1:]
	}
	return r, nil
}

func (f *fakeConsultor) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.chamadas
}

type fakeNotificador struct {
	mu      sync.Mutex
	alertas []notificacao.Alerta
}

func (f *fakeNotificador) Enviar(_ context.Context, a notificacao.Alerta) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alertas = append(f.alertas, a)
	return nil
}

func (f *fakeNotificador) tipos() []notificacao.Tipo {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []notificacao.Tipo
	for _, a := range f.alertas {
		out = append(out, a.Tipo)
	}
	return out
}

type fakeFila struct {
	mu  sync.Mutex
	ids []string
	err error
}

func (f *fakeFila) Publicar(_ context.Context, ids ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ids = append(f.ids, ids...)
	return f.err
}

func (f *fakeFila) publicados() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.ids...)
}

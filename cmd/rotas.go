package main

import (
	"context"
	"net/http"
	"time"

	"github.com/KromaEnergia/painel-fiscal/internal/auth"
	"github.com/KromaEnergia/painel-fiscal/internal/caixapostal"
	"github.com/KromaEnergia/painel-fiscal/internal/cliente"
	"github.com/KromaEnergia/painel-fiscal/internal/cnd"
	"github.com/KromaEnergia/painel-fiscal/internal/consulta"
	"github.com/KromaEnergia/painel-fiscal/internal/dashboard"
	"github.com/KromaEnergia/painel-fiscal/internal/declaracao"
	"github.com/KromaEnergia/painel-fiscal/internal/escritorio"
	"github.com/KromaEnergia/painel-fiscal/internal/fgts"
	"github.com/KromaEnergia/painel-fiscal/internal/middleware"
	"github.com/KromaEnergia/painel-fiscal/internal/parcelamento"
	"github.com/KromaEnergia/painel-fiscal/internal/simples"
	"github.com/KromaEnergia/painel-fiscal/internal/tarefa"
	"github.com/KromaEnergia/painel-fiscal/internal/usuario"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"gorm.io/gorm"
)

func novoRouter(ctx context.Context, db *gorm.DB, fila *consulta.Fila) http.Handler {
	sessoes := auth.NovasSessoes(db, usuario.NewRepository(), cfg.CookieSecure)

	escritorioHandler := escritorio.NewHandler(db)
	usuarioHandler := usuario.NewHandler(db, sessoes)
	clienteHandler := cliente.NewHandler(db)
	cndHandler := cnd.NewHandler(db, cfg.JanelaVencimento)
	consultaHandler := consulta.NewHandler(db, fila, log.Named("consulta"))
	fgtsHandler := fgts.NewHandler(db)
	declaracaoHandler := declaracao.NewHandler(db)
	parcelamentoHandler := parcelamento.NewHandler(db)
	simplesHandler := simples.NewHandler(db)
	mensagemHandler := caixapostal.NewHandler(db)
	tarefaHandler := tarefa.NewHandler(db)
	dashboardHandler := dashboard.NewHandler(db, cfg.JanelaVencimento, log.Named("dashboard"))

	r := mux.NewRouter()

	// Rotas públicas
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods("GET")
	r.HandleFunc("/.well-known/jwks.json", auth.JWKSHandler).Methods("GET")
	r.HandleFunc("/escritorios", escritorioHandler.Cadastrar).Methods("POST")
	r.HandleFunc("/auth/login", usuarioHandler.Login).Methods("POST")
	r.HandleFunc("/auth/refresh", sessoes.Refresh).Methods("POST")
	r.HandleFunc("/auth/logout", sessoes.Logout).Methods("POST")

	api := r.NewRoute().Subrouter()
	api.Use(auth.MiddlewareAutenticacao)

	// sem subrouter aninhado: ele responderia 405 aos outros métodos do mesmo caminho
	soAdmin := func(f http.HandlerFunc) http.Handler { return auth.RequireAdmin(f) }

	// Escritório e usuários
	api.HandleFunc("/escritorio", escritorioHandler.Buscar).Methods("GET")
	api.Handle("/escritorio", soAdmin(escritorioHandler.Atualizar)).Methods("PUT")
	api.HandleFunc("/me", usuarioHandler.Me).Methods("GET")
	api.HandleFunc("/usuarios", usuarioHandler.Listar).Methods("GET")
	api.Handle("/usuarios", soAdmin(usuarioHandler.Criar)).Methods("POST")
	api.HandleFunc("/usuarios/{id}", usuarioHandler.Atualizar).Methods("PUT")
	api.Handle("/usuarios/{id}", soAdmin(usuarioHandler.Deletar)).Methods("DELETE")

	// Clientes
	api.HandleFunc("/clientes", clienteHandler.Criar).Methods("POST")
	api.HandleFunc("/clientes", clienteHandler.Listar).Methods("GET")
	api.HandleFunc("/clientes/{id}", clienteHandler.BuscarPorID).Methods("GET")
	api.HandleFunc("/clientes/{id}", clienteHandler.Atualizar).Methods("PUT")
	api.HandleFunc("/clientes/{id}", clienteHandler.Deletar).Methods("DELETE")

	// Certidões
	api.HandleFunc("/clientes/{id}/certidoes", cndHandler.ListarPorCliente).Methods("GET")
	api.HandleFunc("/clientes/{id}/certidoes", cndHandler.Criar).Methods("POST")
	api.HandleFunc("/certidoes", cndHandler.Listar).Methods("GET")
	api.HandleFunc("/certidoes/{id}", cndHandler.BuscarPorID).Methods("GET")
	api.HandleFunc("/certidoes/{id}", cndHandler.Atualizar).Methods("PUT")
	api.HandleFunc("/certidoes/{id}", cndHandler.Deletar).Methods("DELETE")

	// Consultas InfoSimples
	api.HandleFunc("/clientes/{id}/consultas", consultaHandler.CriarParaCliente).Methods("POST")
	api.HandleFunc("/consultas/lote", consultaHandler.CriarLote).Methods("POST")
	api.HandleFunc("/consultas", consultaHandler.Listar).Methods("GET")
	api.HandleFunc("/consultas/{id}", consultaHandler.BuscarPorID).Methods("GET")

	// FGTS
	api.HandleFunc("/clientes/{id}/fgts", fgtsHandler.ListarPorCliente).Methods("GET")
	api.HandleFunc("/clientes/{id}/fgts", fgtsHandler.Criar).Methods("POST")
	api.HandleFunc("/fgts", fgtsHandler.Listar).Methods("GET")
	api.HandleFunc("/fgts/{id}", fgtsHandler.BuscarPorID).Methods("GET")
	api.HandleFunc("/fgts/{id}", fgtsHandler.Atualizar).Methods("PUT")
	api.HandleFunc("/fgts/{id}/pagamento", fgtsHandler.RegistrarPagamento).Methods("PATCH")
	api.HandleFunc("/fgts/{id}", fgtsHandler.Deletar).Methods("DELETE")

	// Declarações
	api.HandleFunc("/clientes/{id}/declaracoes", declaracaoHandler.ListarPorCliente).Methods("GET")
	api.HandleFunc("/clientes/{id}/declaracoes", declaracaoHandler.Criar).Methods("POST")
	api.HandleFunc("/declaracoes", declaracaoHandler.Listar).Methods("GET")
	api.HandleFunc("/declaracoes/{id}", declaracaoHandler.BuscarPorID).Methods("GET")
	api.HandleFunc("/declaracoes/{id}", declaracaoHandler.Atualizar).Methods("PUT")
	api.HandleFunc("/declaracoes/{id}/entrega", declaracaoHandler.RegistrarEntrega).Methods("PATCH")
	api.HandleFunc("/declaracoes/{id}", declaracaoHandler.Deletar).Methods("DELETE")

	// Parcelamentos
	api.HandleFunc("/clientes/{id}/parcelamentos", parcelamentoHandler.ListarPorCliente).Methods("GET")
	api.HandleFunc("/clientes/{id}/parcelamentos", parcelamentoHandler.Criar).Methods("POST")
	api.HandleFunc("/parcelamentos", parcelamentoHandler.Listar).Methods("GET")
	api.HandleFunc("/parcelamentos/{id}", parcelamentoHandler.BuscarPorID).Methods("GET")
	api.HandleFunc("/parcelamentos/{id}", parcelamentoHandler.Atualizar).Methods("PUT")
	api.HandleFunc("/parcelamentos/{id}", parcelamentoHandler.Deletar).Methods("DELETE")
	api.HandleFunc("/parcelas/{pid}/status", parcelamentoHandler.AtualizarStatusParcela).Methods("PATCH")

	// Simples Nacional
	api.HandleFunc("/clientes/{id}/simples", simplesHandler.Resumo).Methods("GET")
	api.HandleFunc("/clientes/{id}/simples/faturamentos", simplesHandler.SalvarFaturamentos).Methods("PUT")
	api.HandleFunc("/simples/alertas", simplesHandler.Alertas).Methods("GET")

	// Caixa postal
	api.HandleFunc("/clientes/{id}/mensagens", mensagemHandler.Importar).Methods("POST")
	api.HandleFunc("/clientes/{id}/mensagens", mensagemHandler.ListarPorCliente).Methods("GET")
	api.HandleFunc("/mensagens", mensagemHandler.Listar).Methods("GET")
	api.HandleFunc("/mensagens/{id}", mensagemHandler.BuscarPorID).Methods("GET")
	api.HandleFunc("/mensagens/{id}/leitura", mensagemHandler.MarcarLeitura).Methods("PATCH")
	api.HandleFunc("/mensagens/{id}", mensagemHandler.Deletar).Methods("DELETE")

	// Tarefas
	api.HandleFunc("/tarefas", tarefaHandler.Criar).Methods("POST")
	api.HandleFunc("/tarefas", tarefaHandler.Listar).Methods("GET")
	api.HandleFunc("/tarefas/{id}", tarefaHandler.BuscarPorID).Methods("GET")
	api.HandleFunc("/tarefas/{id}", tarefaHandler.Atualizar).Methods("PUT")
	api.HandleFunc("/tarefas/{id}/status", tarefaHandler.AtualizarStatus).Methods("PATCH")
	api.HandleFunc("/tarefas/{id}", tarefaHandler.Deletar).Methods("DELETE")
	api.HandleFunc("/tarefas/{id}/comentarios", tarefaHandler.CriarComentario).Methods("POST")
	api.HandleFunc("/tarefas/{id}/comentarios", tarefaHandler.ListarComentarios).Methods("GET")
	api.HandleFunc("/tarefas/{id}/comentarios/{cid}", tarefaHandler.RemoverComentario).Methods("DELETE")

	api.HandleFunc("/dashboard", dashboardHandler.Obter).Methods("GET")

	limitador := middleware.NovoLimitador(cfg.RateRPS, cfg.RateBurst)
	limitador.IniciarLimpeza(ctx, 2*time.Minute)

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	var h http.Handler = r
	h = middleware.RateLimit(limitador, middleware.ChaveCliente(cfg.TrustProxy))(h)
	h = c.Handler(h)
	return middleware.AccessLog(log.Named("http"))(h)
}

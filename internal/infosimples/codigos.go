package infosimples

// Resultado é a leitura interna do campo "code" da resposta.
type Resultado string

const (
	Sucesso        Resultado = "sucesso"
	SemDados       Resultado = "sem_dados"
	ErroTemporario Resultado = "erro_temporario"
	Erro           Resultado = "erro"
)

// Códigos 6xx que costumam se resolver numa nova tentativa
// (timeout, instabilidade do portal, captcha, fila cheia).
var codigosTemporarios = map[int]bool{
	600: true, 605: true, 609: true, 610: true,
	613: true, 614: true, 615: true, 618: true,
}

// MapearCodigo converte o code da InfoSimples. 612 significa que o portal não
// emitiu a certidão para o CNPJ, o que na prática indica pendência.
func MapearCodigo(code int) Resultado {
	switch {
	case code == 200:
		return Sucesso
	case code == 612:
		return SemDados
	case codigosTemporarios[code]:
		return ErroTemporario
	default:
		return Erro
	}
}

func (r Resultado) Retentavel() bool {
	return r == ErroTemporario
}

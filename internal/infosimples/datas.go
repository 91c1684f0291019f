package infosimples

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/KromaEnergia/painel-fiscal/internal/utils"
)

var ErrDataInvalida = errors.New("data em formato não reconhecido")

// Local é o fuso das datas devolvidas pelos portais.
var Local = utils.Fuso

var (
	reISO = regexp.MustCompile(`(\d{4})-(\d{2})-(\d{2})(?:[T ](\d{2}):(\d{2})(?::(\d{2}))?)?`)
	reBR  = regexp.MustCompile(`(\d{2})[/.\-](\d{2})[/.\-](\d{4})(?:\s*(?:às|as|-|,)?\s*(\d{2}):(\d{2})(?::(\d{2}))?)?`)
)

// ParseData interpreta as datas heterogêneas dos portais: "12/03/2025",
// "12/03/2025 às 10:15:00", "2025-03-12", "2025-03-12T10:15:00-03:00",
// "12.03.2025", "12-03-2025" e datas no meio de um texto ("Válida até 12/03/2025").
func ParseData(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrDataInvalida
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.In(Local), nil
	}
	if m := reISO.FindStringSubmatch(s); m != nil {
		return montar(m[1], m[2], m[3], m[4], m[5], m[6])
	}
	if m := reBR.FindStringSubmatch(s); m != nil {
		return montar(m[3], m[2], m[1], m[4], m[5], m[6])
	}
	return time.Time{}, ErrDataInvalida
}

func montar(ano, mes, dia, hora, minuto, segundo string) (time.Time, error) {
	y, _ := strconv.Atoi(ano)
	mo, _ := strconv.Atoi(mes)
	d, _ := strconv.Atoi(dia)
	h := atoiOpcional(hora)
	mi := atoiOpcional(minuto)
	se := atoiOpcional(segundo)
	if mo < 1 || mo > 12 || d < 1 || h > 23 || mi > 59 || se > 59 {
		return time.Time{}, ErrDataInvalida
	}
	t := time.Date(y, time.Month(mo), d, h, mi, se, 0, Local)
	// rejeita 31/02 e afins, que o time.Date normalizaria
	if t.Day() != d || int(t.Month()) != mo {
		return time.Time{}, ErrDataInvalida
	}
	return t, nil
}

func atoiOpcional(s string) int {
	if s == "" {
		return 0
	}
	v, _ := strconv.Atoi(s)
	return v
}

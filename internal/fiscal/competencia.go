package fiscal

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var ErrCompetenciaInvalida = errors.New("competência inválida. Use 'AAAA-MM' ou 'MM/AAAA'")

// ParseCompetencia lê "2025-02" ou "02/2025" e devolve o primeiro dia do mês em loc.
func ParseCompetencia(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	var ano, mes string
	switch {
	case len(s) == 7 && s[4] == '-':
		ano, mes = s[:4], s[5:]
	case len(s) == 7 && s[2] == '/':
		mes, ano = s[:2], s[3:]
	default:
		return time.Time{}, ErrCompetenciaInvalida
	}
	y, err1 := strconv.Atoi(ano)
	m, err2 := strconv.Atoi(mes)
	if err1 != nil || err2 != nil || m < 1 || m > 12 || y < 1900 {
		return time.Time{}, ErrCompetenciaInvalida
	}
	return time.Date(y, time.Month(m), 1, 0, 0, 0, 0, loc), nil
}

// Competencia formata no padrão "AAAA-MM".
func Competencia(t time.Time) string {
	return fmt.Sprintf("%04d-%02d", t.Year(), int(t.Month()))
}

// DiaUtilAnterior recua sábados e domingos para a sexta-feira. Feriados não são considerados.
func DiaUtilAnterior(t time.Time) time.Time {
	switch t.Weekday() {
	case time.Saturday:
		return t.AddDate(0, 0, -1)
	case time.Sunday:
		return t.AddDate(0, 0, -2)
	}
	return t
}

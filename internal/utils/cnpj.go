package utils

import (
	"errors"
	"strings"
)

var ErrCNPJInvalido = errors.New("CNPJ inválido")

// SomenteDigitos remove pontuação de CNPJ/CPF/CEP.
func SomenteDigitos(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizarCNPJ devolve os 14 dígitos do CNPJ ou ErrCNPJInvalido se os dígitos verificadores não conferirem.
func NormalizarCNPJ(cnpj string) (string, error) {
	d := SomenteDigitos(cnpj)
	if !ValidarCNPJ(d) {
		return "", ErrCNPJInvalido
	}
	return d, nil
}

// ValidarCNPJ confere tamanho e dígitos verificadores (módulo 11).
func ValidarCNPJ(cnpj string) bool {
	d := SomenteDigitos(cnpj)
	if len(d) != 14 {
		return false
	}
	iguais := true
	for i := 1; i < 14; i++ {
		if d[i] != d[0] {
			iguais = false
			break
		}
	}
	if iguais {
		return false
	}

	pesos1 := []int{5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
	pesos2 := []int{6, 5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
	return digitoVerificador(d[:12], pesos1) == int(d[12]-'0') &&
		digitoVerificador(d[:13], pesos2) == int(d[13]-'0')
}

func digitoVerificador(base string, pesos []int) int {
	soma := 0
	for i, p := range pesos {
		soma += int(base[i]-'0') * p
	}
	resto := soma % 11
	if resto < 2 {
		return 0
	}
	return 11 - resto
}

// FormatarCNPJ aplica a máscara 00.000.000/0000-00.
func FormatarCNPJ(cnpj string) string {
	d := SomenteDigitos(cnpj)
	if len(d) != 14 {
		return cnpj
	}
	return d[0:2] + "." + d[2:5] + "." + d[5:8] + "/" + d[8:12] + "-" + d[12:14]
}

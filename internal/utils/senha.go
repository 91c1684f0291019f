package utils

import (
	"crypto/rand"
	"math/big"

	"golang.org/x/crypto/bcrypt"
)

// TamanhoSenhaTemporaria das senhas geradas no cadastro de usuários sem senha.
const TamanhoSenhaTemporaria = 12

// Sem 0/O, 1/l/I: a senha temporária é lida e digitada por uma pessoa.
const alfabetoSenha = "abcdefghijkmnopqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ23456789"

func HashSenha(senha string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(senha), bcrypt.DefaultCost)
	return string(hash), err
}

// VerificarSenha compara o hash bcrypt com a senha em texto.
func VerificarSenha(hash, senha string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(senha)) == nil
}

// GerarSenhaTemporaria sorteia n caracteres com crypto/rand.
func GerarSenhaTemporaria(n int) (string, error) {
	if n < 8 {
		n = TamanhoSenhaTemporaria
	}
	max := big.NewInt(int64(len(alfabetoSenha)))
	out := make([]byte, n)
	for i := range out {
		k, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = alfabetoSenha[k.Int64()]
	}
	return string(out), nil
}

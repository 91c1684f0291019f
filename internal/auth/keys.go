package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/golang-jwt/jwt/v5"
)

var (
	keysMu sync.RWMutex

	privKey   *rsa.PrivateKey
	pubKeys   = map[string]*rsa.PublicKey{} // kid -> pub
	activeKID string
	issuer    string
	audience  string
)

var ErrChavesNaoConfiguradas = errors.New("chaves de assinatura não configuradas")

// Configurar carrega a chave RSA (PKCS#1 ou PKCS#8) do caminho informado.
// Sem caminho, gera uma chave efêmera: tokens deixam de valer ao reiniciar o processo.
func Configurar(path, kid, iss, aud string) error {
	if kid == "" {
		kid = "dev"
	}
	if path == "" {
		k, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			return fmt.Errorf("gerar chave efêmera: %w", err)
		}
		ConfigurarChave(k, kid, iss, aud)
		return nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read private key: %w", err)
	}
	block, _ := pem.Decode(b)
	if block == nil {
		return errors.New("pem decode private key failed")
	}

	var pk any
	if k, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		pk = k
	} else if k8, err2 := x509.ParsePKCS8PrivateKey(block.Bytes); err2 == nil {
		pk = k8
	} else {
		return fmt.Errorf("parse private key: %v / %v", err, err2)
	}

	rsaKey, ok := pk.(*rsa.PrivateKey)
	if !ok {
		return errors.New("private key is not RSA")
	}
	ConfigurarChave(rsaKey, kid, iss, aud)
	return nil
}

// ConfigurarChave instala a chave ativa diretamente.
func ConfigurarChave(k *rsa.PrivateKey, kid, iss, aud string) {
	keysMu.Lock()
	defer keysMu.Unlock()
	privKey = k
	activeKID = kid
	issuer = iss
	audience = aud
	pubKeys[kid] = &k.PublicKey
}

func getPriv() *rsa.PrivateKey {
	keysMu.RLock()
	defer keysMu.RUnlock()
	return privKey
}

func getPub(kid string) (*rsa.PublicKey, bool) {
	keysMu.RLock()
	defer keysMu.RUnlock()
	p, ok := pubKeys[kid]
	return p, ok
}

func getKID() string {
	keysMu.RLock()
	defer keysMu.RUnlock()
	return activeKID
}

func getIssuer() string {
	keysMu.RLock()
	defer keysMu.RUnlock()
	return issuer
}

func getAudience() string {
	keysMu.RLock()
	defer keysMu.RUnlock()
	return audience
}

func signMethod() jwt.SigningMethod { return jwt.SigningMethodRS256 }

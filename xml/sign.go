package xml

import (
	"bytes"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"

	"github.com/pkg/errors"
)

const (
	dsNamespaceURI = "http://www.w3.org/2000/09/xmldsig#"

	c14nAlgorithm      = "http://www.w3.org/TR/2001/REC-xml-c14n-20010315"
	rsaSHA256Algorithm = "http://www.w3.org/2001/04/xmldsig-more#rsa-sha256"
	sha256Algorithm    = "http://www.w3.org/2001/04/xmlenc#sha256"
	envelopedAlgorithm = "http://www.w3.org/2000/09/xmldsig#enveloped-signature"
)

// Signer holds the key material a document is signed with (spec
// SUPPLEMENTED FEATURES: the teacher's XML-DSig helper, re-grounded on
// this package's own encoder for canonicalization instead of an ad hoc
// string writer). Only the plain XML-DSig shape is kept; the teacher's
// XAdES/DIAN-specific fields are dropped (see DESIGN.md).
type Signer struct {
	Cert *x509.Certificate
	Key  *rsa.PrivateKey
}

// NewSigner parses a PEM-encoded X.509 certificate and an RSA private key
// (PKCS#1 or PKCS#8).
func NewSigner(certPEM, keyPEM []byte) (*Signer, error) {
	block, _ := pem.Decode(certPEM)
	if block == nil {
		return nil, errors.New("failed to decode certificate PEM")
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, errors.Wrap(err, "parsing x509 certificate")
	}

	keyBlock, _ := pem.Decode(keyPEM)
	if keyBlock == nil {
		return nil, errors.New("failed to decode private key PEM")
	}
	key, err := x509.ParsePKCS1PrivateKey(keyBlock.Bytes)
	if err != nil {
		generic, err2 := x509.ParsePKCS8PrivateKey(keyBlock.Bytes)
		if err2 != nil {
			return nil, errors.Wrap(err, "parsing private key")
		}
		rsaKey, ok := generic.(*rsa.PrivateKey)
		if !ok {
			return nil, errors.New("private key is not RSA")
		}
		key = rsaKey
	}
	return &Signer{Cert: cert, Key: key}, nil
}

// CanonicalizeNode serializes n and its subtree through a fresh Encoder,
// with no XML declaration and a pinned "ds" prefix for the XML-DSig
// namespace — a prefix-stable rendering deterministic enough to digest
// and sign, standing in for the teacher's OrderedMap-based Canonicalize.
func CanonicalizeNode(n *Node) ([]byte, error) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	if err := enc.DeclareNamespacePrefix("ds", dsNamespaceURI); err != nil {
		return nil, errors.Wrap(err, "pinning ds prefix")
	}
	if err := writeNodeCanonical(enc, n); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeNodeCanonical(enc *Encoder, n *Node) error {
	if err := enc.WriteStartElement(n.Name, n.Attrs); err != nil {
		return errors.Wrap(err, "writing start element")
	}
	for _, c := range n.Children {
		if err := writeNodeCanonical(enc, c); err != nil {
			return err
		}
	}
	if n.Text != "" {
		if err := enc.WriteText(CData(n.Text)); err != nil {
			return errors.Wrap(err, "writing text")
		}
	}
	if err := enc.WriteEndElement(); err != nil {
		return errors.Wrap(err, "writing end element")
	}
	return nil
}

func ds(local string) QName { return QName{URI: dsNamespaceURI, Local: NCName(local)} }

func leaf(name QName, text string) *Node {
	return &Node{Name: name, Text: text}
}

func withAttr(n *Node, local, value string) *Node {
	if n.Attrs == nil {
		n.Attrs = make(map[QName]CData)
	}
	n.Attrs[QName{Local: NCName(local)}] = CData(value)
	return n
}

func parent(name QName, children ...*Node) *Node {
	return &Node{Name: name, Children: children}
}

// CreateSignature canonicalizes doc, digests and RSA-SHA256-signs the
// result, and returns the resulting ds:Signature element ready to be
// appended into (or alongside) doc.
func (s *Signer) CreateSignature(doc *Node) (*Node, error) {
	docBytes, err := CanonicalizeNode(doc)
	if err != nil {
		return nil, errors.Wrap(err, "canonicalizing document")
	}
	docHash := sha256.Sum256(docBytes)
	docDigest := base64.StdEncoding.EncodeToString(docHash[:])

	signedInfo := parent(ds("SignedInfo"),
		withAttr(parent(ds("CanonicalizationMethod")), "Algorithm", c14nAlgorithm),
		withAttr(parent(ds("SignatureMethod")), "Algorithm", rsaSHA256Algorithm),
		withAttr(parent(ds("Reference"),
			parent(ds("Transforms"),
				withAttr(parent(ds("Transform")), "Algorithm", envelopedAlgorithm),
			),
			withAttr(parent(ds("DigestMethod")), "Algorithm", sha256Algorithm),
			leaf(ds("DigestValue"), docDigest),
		), "URI", ""),
	)

	siBytes, err := CanonicalizeNode(signedInfo)
	if err != nil {
		return nil, errors.Wrap(err, "canonicalizing SignedInfo")
	}
	siHash := sha256.Sum256(siBytes)

	sigBytes, err := rsa.SignPKCS1v15(rand.Reader, s.Key, crypto.SHA256, siHash[:])
	if err != nil {
		return nil, errors.Wrap(err, "signing SignedInfo digest")
	}

	keyInfo := parent(ds("KeyInfo"),
		parent(ds("X509Data"),
			leaf(ds("X509Certificate"), base64.StdEncoding.EncodeToString(s.Cert.Raw)),
		),
	)

	signature := parent(ds("Signature"),
		signedInfo,
		leaf(ds("SignatureValue"), base64.StdEncoding.EncodeToString(sigBytes)),
		keyInfo,
	)
	return signature, nil
}

package davclient_test

import (
	"context"
	"errors"
	"net"
)

type mockResolver struct {
	srv map[string][]*net.SRV
	txt map[string][]string
}

func (m *mockResolver) LookupSRV(_ context.Context, _, _, name string) (string, []*net.SRV, error) {
	addrs, ok := m.srv[name]
	if !ok {
		return "", nil, errors.New("no such host")
	}
	return name, addrs, nil
}

func (m *mockResolver) LookupTXT(_ context.Context, name string) ([]string, error) {
	txts, ok := m.txt[name]
	if !ok {
		return nil, errors.New("no such host")
	}
	return txts, nil
}

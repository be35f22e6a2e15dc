package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"paysync.backend/internal/config"
)

type fakeOperatorKeyMinter struct {
	apiKey string
	secret string
	err    error
}

func (f *fakeOperatorKeyMinter) CreateOperatorKey(ctx context.Context, label string) (string, string, error) {
	if f.err != nil {
		return "", "", f.err
	}
	return f.apiKey, f.secret, nil
}

func testDeps(minter operatorKeyMinter, prepareErr error) operatorKeyGenDeps {
	var buf bytes.Buffer
	return operatorKeyGenDeps{
		loadEnv: func() error { return nil },
		loadCfg: func() (*config.Config, error) { return &config.Config{}, nil },
		prepare: func(cfg *config.Config) (operatorKeyMinter, io.Closer, error) {
			if prepareErr != nil {
				return nil, nil, prepareErr
			}
			return minter, nopCloser{}, nil
		},
		out: &buf,
	}
}

func TestRunOperatorKeyGen_Success(t *testing.T) {
	minter := &fakeOperatorKeyMinter{apiKey: "pk_live_abc", secret: "sk_live_def"}
	deps := testDeps(minter, nil)

	err := runOperatorKeyGen([]string{"-label", "console"}, deps)
	require.NoError(t, err)

	out := deps.out.(*bytes.Buffer).String()
	require.Contains(t, out, "pk_live_abc")
	require.Contains(t, out, "sk_live_def")
}

func TestRunOperatorKeyGen_PrepareFailure(t *testing.T) {
	deps := testDeps(nil, errors.New("db unreachable"))

	err := runOperatorKeyGen(nil, deps)
	require.Error(t, err)
}

func TestRunOperatorKeyGen_MinterFailure(t *testing.T) {
	minter := &fakeOperatorKeyMinter{err: errors.New("boom")}
	deps := testDeps(minter, nil)

	err := runOperatorKeyGen(nil, deps)
	require.Error(t, err)
}

package presenter_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/omni/festival-greetings/config"
	"github.com/omni/festival-greetings/entity"
	"github.com/omni/festival-greetings/presenter"
	"github.com/omni/festival-greetings/presenter/http/render"
	"github.com/omni/festival-greetings/relay"
)

const testConfig = `
chains:
  fuji:
    rpc:
      host: https://api.avax-test.network/ext/bc/C/rpc
    chain_id: 43113
    label: Avalanche Fuji
    ccip_chain_selector: 14767482510784806043
  sepolia:
    rpc:
      host: https://rpc.sepolia.org
    chain_id: 11155111
    label: Ethereum Sepolia
    ccip_chain_selector: 16015286601757825753
sender:
  chain: fuji
  address: 0x7301CFA0e1756B71869E93d4e4Dca5c7d0eb0AA6
receiver:
  chain: sepolia
  address: 0x4aa42145Aa6Ebf72e164C9bBC74fbD3788045016
greetings:
  default_from_chain: 43113
  default_to_chain: 11155111
`

var testTxHash = common.HexToHash("0x5f1c0ad7a47d5f0e6cb7dc4f0f3e0a5c2f2d39a1f5f4bdf8d1d0d53c3c1a4e21")

type fakeSender struct {
	err error
}

func (s *fakeSender) SendFestivalData(context.Context, common.Address, string) (common.Hash, error) {
	if s.err != nil {
		return common.Hash{}, s.err
	}
	return testTxHash, nil
}

type fakeReceiver struct {
	messageID common.Hash
	data      string
	err       error
}

func (r *fakeReceiver) LastReceivedFestivalData(context.Context) (common.Hash, string, error) {
	return r.messageID, r.data, r.err
}

func newTestPresenter(t *testing.T, sender relay.Sender, receiver relay.ReceiverReader) (*presenter.Presenter, *relay.Service) {
	t.Helper()
	cfg, err := config.ReadConfig([]byte(testConfig))
	require.NoError(t, err)
	logger, _ := logtest.NewNullLogger()
	svc := relay.NewService(logger, relay.Config{
		SenderChainID:  cfg.Sender.Chain.ChainID,
		Receiver:       cfg.Receiver.Address,
		KnownChains:    []string{"43113", "11155111"},
		RecentCapacity: cfg.Greetings.RecentCapacity,
	}, sender, receiver, nil)
	return presenter.NewPresenter(logger, cfg, svc, func() bool { return true }), svc
}

func doRequest(t *testing.T, p http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.NoError(t, json.NewDecoder(rec.Body).Decode(dst))
}

func TestPresenter_GetChains(t *testing.T) {
	t.Parallel()

	p, _ := newTestPresenter(t, &fakeSender{}, &fakeReceiver{})
	rec := doRequest(t, p, http.MethodGet, "/chains", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var res presenter.ChainsResult
	decode(t, rec, &res)
	require.Equal(t, presenter.ChainsResult{
		Chains: []*presenter.ChainInfo{
			{ChainID: "11155111", Label: "Ethereum Sepolia", CCIPChainSelector: "16015286601757825753", Receiver: true},
			{ChainID: "43113", Label: "Avalanche Fuji", CCIPChainSelector: "14767482510784806043", Sender: true},
		},
		DefaultFromChain: "43113",
		DefaultToChain:   "11155111",
	}, res)

	rec = doRequest(t, p, http.MethodGet, "/chains/43113", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = doRequest(t, p, http.MethodGet, "/chains/80001", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPresenter_ValidateGreeting(t *testing.T) {
	t.Parallel()

	p, _ := newTestPresenter(t, &fakeSender{}, &fakeReceiver{})
	for _, test := range []struct {
		Name           string
		Body           interface{}
		ExpectedStatus int
		ExpectedResult presenter.ValidationResult
	}{
		{
			Name:           "Valid input",
			Body:           map[string]string{"name": "Ana", "festival": "Diwali", "greeting": "Happy Diwali!"},
			ExpectedStatus: http.StatusOK,
			ExpectedResult: presenter.ValidationResult{Valid: true},
		},
		{
			Name:           "Empty name",
			Body:           map[string]string{"name": "  ", "festival": "Diwali", "greeting": "Happy Diwali!"},
			ExpectedStatus: http.StatusOK,
			ExpectedResult: presenter.ValidationResult{Errors: map[string]string{"name": "Name is required"}},
		},
		{
			Name:           "Malformed body",
			Body:           `{"name":`,
			ExpectedStatus: http.StatusBadRequest,
		},
		{
			Name:           "Unknown field",
			Body:           map[string]string{"sender": "0x01"},
			ExpectedStatus: http.StatusBadRequest,
		},
	} {
		t.Logf("Running sub-test %q", test.Name)
		rec := doRequest(t, p, http.MethodPost, "/greetings/validate", test.Body)
		require.Equal(t, test.ExpectedStatus, rec.Code, "Failed %s", test.Name)
		if test.ExpectedStatus != http.StatusOK {
			continue
		}
		var res presenter.ValidationResult
		decode(t, rec, &res)
		require.Equal(t, test.ExpectedResult, res, "Failed %s", test.Name)
	}
}

func TestPresenter_SendGreeting(t *testing.T) {
	t.Parallel()

	p, svc := newTestPresenter(t, &fakeSender{}, &fakeReceiver{})
	rec := doRequest(t, p, http.MethodPost, "/greetings", map[string]string{
		"name":      "Ana",
		"festival":  "Diwali",
		"greeting":  "Happy Diwali!",
		"fromChain": "43113",
		"toChain":   "11155111",
	})
	require.Equal(t, http.StatusAccepted, rec.Code)

	var res presenter.GreetingInfo
	decode(t, rec, &res)
	require.NotEmpty(t, res.ID)
	require.Equal(t, "Ana", res.Name)
	require.Equal(t, entity.GreetingStatusSubmitted, res.Status)
	require.Equal(t, testTxHash.String(), res.TransactionHash)
	require.Equal(t, "https://ccip.chain.link/tx/"+testTxHash.String(), res.TxLink)
	require.Empty(t, res.MessageID)
	require.Empty(t, res.MessageLink)
	require.Len(t, svc.Recent(), 1)

	rec = doRequest(t, p, http.MethodGet, "/greetings", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var recent []*presenter.GreetingInfo
	decode(t, rec, &recent)
	require.Len(t, recent, 1)
	require.Equal(t, res.ID, recent[0].ID)
	require.Equal(t, "43113", recent[0].FromChain)
	require.Equal(t, "11155111", recent[0].ToChain)
}

func TestPresenter_SendGreetingErrors(t *testing.T) {
	t.Parallel()

	valid := map[string]string{"name": "Ana", "festival": "Diwali", "greeting": "Happy Diwali!"}
	withChains := func(from, to string) map[string]string {
		res := map[string]string{"fromChain": from, "toChain": to}
		for k, v := range valid {
			res[k] = v
		}
		return res
	}
	for _, test := range []struct {
		Name           string
		SenderErr      error
		Body           interface{}
		ExpectedStatus int
		ExpectedError  string
		ExpectedFields map[string]string
	}{
		{
			Name:           "Chains not selected",
			Body:           withChains("", "11155111"),
			ExpectedStatus: http.StatusBadRequest,
			ExpectedError:  relay.MsgChainNotSelected,
		},
		{
			Name:           "Unknown chain",
			Body:           withChains("43113", "1"),
			ExpectedStatus: http.StatusBadRequest,
		},
		{
			Name:           "Unsupported source chain",
			Body:           withChains("11155111", "43113"),
			ExpectedStatus: http.StatusBadRequest,
		},
		{
			Name: "Invalid input",
			Body: map[string]string{
				"name": "Ana", "festival": "", "greeting": "Hi",
				"fromChain": "43113", "toChain": "11155111",
			},
			ExpectedStatus: http.StatusBadRequest,
			ExpectedError:  "invalid greeting",
			ExpectedFields: map[string]string{"festival": "Festival name is required"},
		},
		{
			Name:           "Sender failure",
			SenderErr:      errors.New("connection refused"),
			Body:           withChains("43113", "11155111"),
			ExpectedStatus: http.StatusBadGateway,
			ExpectedError:  relay.MsgSubmissionFailed,
		},
	} {
		t.Logf("Running sub-test %q", test.Name)
		p, _ := newTestPresenter(t, &fakeSender{err: test.SenderErr}, &fakeReceiver{})
		rec := doRequest(t, p, http.MethodPost, "/greetings", test.Body)
		require.Equal(t, test.ExpectedStatus, rec.Code, "Failed %s", test.Name)

		var res render.ErrorResponse
		decode(t, rec, &res)
		require.NotEmpty(t, res.Error, "Failed %s", test.Name)
		if test.ExpectedError != "" {
			require.Equal(t, test.ExpectedError, res.Error, "Failed %s", test.Name)
		}
		require.Equal(t, test.ExpectedFields, res.Fields, "Failed %s", test.Name)
	}
}

func TestPresenter_GetLastReceived(t *testing.T) {
	t.Parallel()

	receiver := &fakeReceiver{messageID: common.HexToHash("0xaa"), data: "not a json"}
	p, _ := newTestPresenter(t, &fakeSender{}, receiver)

	rec := doRequest(t, p, http.MethodGet, "/greetings/last", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var res presenter.LastReceivedInfo
	decode(t, rec, &res)
	require.True(t, res.Received)
	require.Nil(t, res.Payload)
	require.Equal(t, relay.MsgInvalidGreetingData, res.Fallback)
	require.Equal(t, "not a json", res.Raw)

	receiver.data = `{"greeting":"Happy Holi","name":"Ravi","festival":"Holi","timestamp":"2024-03-25T10:00:00.000Z"}`
	rec = doRequest(t, p, http.MethodGet, "/greetings/last", nil)
	res = presenter.LastReceivedInfo{}
	decode(t, rec, &res)
	require.Nil(t, res.Payload, "cached value is served without refresh")

	rec = doRequest(t, p, http.MethodGet, "/greetings/last?refresh=true", nil)
	res = presenter.LastReceivedInfo{}
	decode(t, rec, &res)
	require.NotNil(t, res.Payload)
	require.Equal(t, "Ravi", res.Payload.Name)
	require.Empty(t, res.Fallback)

	rec = doRequest(t, p, http.MethodGet, "/greetings/last?refresh=maybe", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	receiver.err = errors.New("execution reverted")
	rec = doRequest(t, p, http.MethodGet, "/greetings/last?refresh=1", nil)
	require.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestPresenter_GetLastReceivedNothing(t *testing.T) {
	t.Parallel()

	p, _ := newTestPresenter(t, &fakeSender{}, &fakeReceiver{})
	rec := doRequest(t, p, http.MethodGet, "/greetings/last", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var res presenter.LastReceivedInfo
	decode(t, rec, &res)
	require.False(t, res.Received)
	require.Equal(t, relay.MsgNoGreetingsReceived, res.Fallback)
}

func TestPresenter_GetGreetingsHistory(t *testing.T) {
	t.Parallel()

	p, _ := newTestPresenter(t, &fakeSender{}, &fakeReceiver{})
	for _, test := range []struct {
		Query          string
		ExpectedStatus int
	}{
		{"", http.StatusOK},
		{"?limit=10", http.StatusOK},
		{"?limit=0", http.StatusBadRequest},
		{"?limit=abc", http.StatusBadRequest},
		{"?limit=1000", http.StatusBadRequest},
	} {
		t.Logf("Running sub-test %q", test.Query)
		rec := doRequest(t, p, http.MethodGet, "/greetings/history"+test.Query, nil)
		require.Equal(t, test.ExpectedStatus, rec.Code, "Failed %s", test.Query)
	}
}

func TestPresenter_GetStatus(t *testing.T) {
	t.Parallel()

	p, _ := newTestPresenter(t, &fakeSender{}, &fakeReceiver{})
	rec := doRequest(t, p, http.MethodGet, "/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var res presenter.StatusResult
	decode(t, rec, &res)
	require.Equal(t, presenter.StatusResult{
		Synced:          true,
		SenderChainID:   "43113",
		ReceiverChainID: "11155111",
	}, res)
}

func TestExplorer(t *testing.T) {
	t.Parallel()

	e := presenter.NewExplorer(&config.ExplorerConfig{
		TxURL:      "https://ccip.chain.link/tx/%s",
		MessageURL: "https://ccip.chain.link/msg/%s",
	})
	require.Equal(t, "https://ccip.chain.link/tx/0xabc", e.TxLink("0xabc"))
	require.Equal(t, "https://ccip.chain.link/msg/not-a-hash", e.MessageLink("not-a-hash"))
	require.Empty(t, e.TxLink(""))
	require.Empty(t, e.MessageLink(""))
}

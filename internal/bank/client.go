package bank

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

// ErrMalformedResponse marks statement responses the bank returned with a
// 2xx status but without the expected payload shape.
var ErrMalformedResponse = errors.New("bank: malformed statement response")

const dateFormat = "2006-01-02"

// AccountID builds the wire account identifier the statements API expects.
func AccountID(account, bic string) string {
	return account + "/" + bic
}

// Party identifies the legal entity on one side of a transfer.
type Party struct {
	INN  string `json:"inn"`
	Name string `json:"name"`
}

// Agent is the bank serving a party.
type Agent struct {
	Identification        string `json:"identification"`
	AccountIdentification string `json:"accountIdentification"`
	Name                  string `json:"name"`
}

// Account is a party's account at its agent bank.
type Account struct {
	Identification string `json:"identification"`
}

// Amount wraps the nested amount object of a transaction.
type Amount struct {
	Amount decimal.Decimal `json:"amount"`
}

// Transaction is one statement line as the bank serializes it. Which of the
// creditor/debtor blocks is populated depends on the direction.
type Transaction struct {
	DocumentProcessDate  string `json:"documentProcessDate"`
	Description          string `json:"description"`
	Amount               Amount `json:"Amount"`
	CreditDebitIndicator string `json:"creditDebitIndicator"`

	CreditorParty   *Party   `json:"CreditorParty,omitempty"`
	CreditorAgent   *Agent   `json:"CreditorAgent,omitempty"`
	CreditorAccount *Account `json:"CreditorAccount,omitempty"`
	DebtorParty     *Party   `json:"DebtorParty,omitempty"`
	DebtorAgent     *Agent   `json:"DebtorAgent,omitempty"`
	DebtorAccount   *Account `json:"DebtorAccount,omitempty"`
}

// CounterpartySide returns the party, agent and account blocks describing the
// other side of the transfer: the creditor for debits, the debtor for
// credits. Missing blocks come back as zero values.
func (t Transaction) CounterpartySide() (p Party, a Agent, acc Account) {
	pp, ap, accp := t.DebtorParty, t.DebtorAgent, t.DebtorAccount
	if t.CreditDebitIndicator == "Debit" {
		pp, ap, accp = t.CreditorParty, t.CreditorAgent, t.CreditorAccount
	}
	if pp != nil {
		p = *pp
	}
	if ap != nil {
		a = *ap
	}
	if accp != nil {
		acc = *accp
	}
	return p, a, acc
}

// Statement is the polled state of an ordered statement.
type Statement struct {
	Status       string
	Transactions []Transaction
}

// Statement statuses the bank reports while building a statement.
const (
	StatusReady = "Ready"
	StatusError = "Error"
)

type createStatementRequest struct {
	Data struct {
		Statement struct {
			AccountID     string `json:"accountId"`
			StartDateTime string `json:"startDateTime"`
			EndDateTime   string `json:"endDateTime"`
		} `json:"Statement"`
	} `json:"Data"`
}

type createStatementResponse struct {
	Data struct {
		Statement struct {
			StatementID string `json:"statementId"`
		} `json:"Statement"`
	} `json:"Data"`
}

type getStatementResponse struct {
	Data struct {
		Statement []struct {
			Status      string        `json:"status"`
			Transaction []Transaction `json:"Transaction"`
		} `json:"Statement"`
	} `json:"Data"`
}

// Client talks to the bank's open-banking statements API.
type Client struct {
	baseURL    string
	token      string
	clientID   string
	httpClient *http.Client
}

// NewClient builds a statements API client. The token goes out as a bearer
// header, the client id as the client_id header, on every request.
func NewClient(baseURL, token, clientID string) *Client {
	return &Client{
		baseURL:  baseURL,
		token:    token,
		clientID: clientID,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// CreateStatement orders a statement for the account over [start, end] and
// returns the statement id to poll.
func (c *Client) CreateStatement(ctx context.Context, accountID string, start, end time.Time) (string, error) {
	var reqBody createStatementRequest
	reqBody.Data.Statement.AccountID = accountID
	reqBody.Data.Statement.StartDateTime = start.Format(dateFormat)
	reqBody.Data.Statement.EndDateTime = end.Format(dateFormat)

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("CreateStatement: marshaling request: %w", err)
	}

	url := c.baseURL + "/open-banking/v1.0/statements"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("CreateStatement: building request: %w", err)
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("CreateStatement: sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("CreateStatement: unexpected status %d", resp.StatusCode)
	}

	var out createStatementResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("CreateStatement: decoding response: %w", err)
	}
	if out.Data.Statement.StatementID == "" {
		return "", fmt.Errorf("CreateStatement: response carries no statement id")
	}
	return out.Data.Statement.StatementID, nil
}

// GetStatement polls a previously ordered statement. A 2xx response without
// a statement entry wraps ErrMalformedResponse.
func (c *Client) GetStatement(ctx context.Context, accountID, statementID string) (Statement, error) {
	url := fmt.Sprintf("%s/open-banking/v1.0/accounts/%s/statements/%s", c.baseURL, accountID, statementID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Statement{}, fmt.Errorf("GetStatement: building request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Statement{}, fmt.Errorf("GetStatement: sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Statement{}, fmt.Errorf("GetStatement: unexpected status %d", resp.StatusCode)
	}

	var out getStatementResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Statement{}, fmt.Errorf("GetStatement: decoding response: %w", ErrMalformedResponse)
	}
	if len(out.Data.Statement) == 0 {
		return Statement{}, fmt.Errorf("GetStatement: empty statement list: %w", ErrMalformedResponse)
	}

	st := out.Data.Statement[0]
	return Statement{Status: st.Status, Transactions: st.Transaction}, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("client_id", c.clientID)
}

// Package ofx turns OFX/QFX bank and card statements into transactions.
package ofx

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/Veraticus/spendwise/internal/model"
	"github.com/aclindsa/ofxgo"
)

var (
	severityRegex = regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	// An SGML opening tag left without its closing bracket at end of line.
	unclosedTagRegex = regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
)

// Parser implements OFX/QFX file parsing.
type Parser struct{}

// NewParser creates a new OFX parser.
func NewParser() *Parser {
	return &Parser{}
}

// Result holds the spending found in one statement file.
type Result struct {
	Transactions []model.Transaction
	Accounts     []string
	Skipped      int // credits, payments and zero-amount rows
}

// preprocessOFX fixes common formatting issues in OFX files.
func (p *Parser) preprocessOFX(content string) string {
	content = strings.TrimLeft(content, " \t\r\n")
	content = severityRegex.ReplaceAllStringFunc(content, strings.ToUpper)
	return unclosedTagRegex.ReplaceAllString(content, "$1>")
}

func (p *Parser) parse(ctx context.Context, reader io.Reader) (*ofxgo.Response, error) {
	if ctx == nil {
		return nil, fmt.Errorf("context cannot be nil")
	}
	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read OFX file: %w", err)
	}
	resp, err := ofxgo.ParseResponse(strings.NewReader(p.preprocessOFX(string(content))))
	if err != nil {
		return nil, fmt.Errorf("failed to parse OFX file: %w", err)
	}
	return resp, nil
}

// ParseFile parses an OFX/QFX file and returns its debits as transactions.
// The account ID becomes the card label.
func (p *Parser) ParseFile(ctx context.Context, reader io.Reader) (*Result, error) {
	resp, err := p.parse(ctx, reader)
	if err != nil {
		return nil, err
	}

	result := &Result{Transactions: []model.Transaction{}}
	accounts := make(map[string]bool)

	for _, msg := range resp.Bank {
		stmt, ok := msg.(*ofxgo.StatementResponse)
		if !ok {
			continue
		}
		accountID := string(stmt.BankAcctFrom.AcctID)
		accounts[accountID] = true
		if stmt.BankTranList != nil {
			p.collect(result, stmt.BankTranList.Transactions, accountID)
		}
	}

	for _, msg := range resp.CreditCard {
		stmt, ok := msg.(*ofxgo.CCStatementResponse)
		if !ok {
			continue
		}
		accountID := string(stmt.CCAcctFrom.AcctID)
		accounts[accountID] = true
		if stmt.BankTranList != nil {
			p.collect(result, stmt.BankTranList.Transactions, accountID)
		}
	}

	for acct := range accounts {
		if acct != "" {
			result.Accounts = append(result.Accounts, acct)
		}
	}
	sort.Strings(result.Accounts)

	slog.Info("Parsed OFX file",
		"transactions", len(result.Transactions),
		"skipped", result.Skipped,
		"accounts", len(result.Accounts))

	return result, nil
}

func (p *Parser) collect(result *Result, txns []ofxgo.Transaction, accountID string) {
	for _, ofxTx := range txns {
		tx, ok := p.convertTransaction(ofxTx, accountID)
		if !ok {
			result.Skipped++
			continue
		}
		result.Transactions = append(result.Transactions, tx)
	}
}

// convertTransaction converts an OFX debit to a transaction. OFX signs debits
// negative; credits and zero amounts are rejected.
func (p *Parser) convertTransaction(ofxTx ofxgo.Transaction, accountID string) (model.Transaction, bool) {
	amount, _ := ofxTx.TrnAmt.Float64()
	if amount >= 0 {
		return model.Transaction{}, false
	}
	amount = -amount

	merchant := p.extractMerchantName(ofxTx)
	if merchant == "" {
		return model.Transaction{}, false
	}

	tx := model.Transaction{
		Date:           model.Day(ofxTx.DtPosted.Time),
		Merchant:       merchant,
		Amount:         amount,
		Currency:       model.DefaultCurrency,
		Category:       inferCategory(ofxTx.TrnType),
		CardLabel:      accountID,
		RawDescription: strings.TrimSpace(string(ofxTx.Name) + " " + string(ofxTx.Memo)),
	}
	tx.Hash = tx.GenerateHash()
	return tx, true
}

// inferCategory maps the few transaction types that imply a category.
func inferCategory(trnType any) string { // ofxgo's trnType is unexported
	switch trnType {
	case ofxgo.TrnTypeFee, ofxgo.TrnTypeSrvChg:
		return "Bills & Utilities"
	default:
		return model.DefaultCategory
	}
}

// extractMerchantName tries to get a clean merchant name from OFX data.
func (p *Parser) extractMerchantName(tx ofxgo.Transaction) string {
	if tx.Payee != nil && tx.Payee.Name != "" {
		return strings.TrimSpace(string(tx.Payee.Name))
	}

	name := string(tx.Name)
	if tx.Memo != "" && isGenericDescription(name) {
		name = string(tx.Memo)
	}
	name = strings.TrimSpace(name)

	prefixes := []string{
		"POS PURCHASE ",
		"PURCHASE AUTHORIZED ON ",
		"DEBIT CARD PURCHASE ",
		"ACH DEBIT ",
		"CHECK CARD ",
		"VISA PURCHASE ",
		"MC PURCHASE ",
		"DEBIT PURCHASE ",
	}
	for _, prefix := range prefixes {
		if strings.HasPrefix(strings.ToUpper(name), prefix) {
			name = name[len(prefix):]
			break
		}
	}

	// Leading "MM/DD " posting dates.
	if len(name) > 5 && name[2] == '/' && name[5] == ' ' {
		name = strings.TrimSpace(name[6:])
	}

	return name
}

func isGenericDescription(name string) bool {
	generic := []string{
		"DEBIT",
		"CREDIT",
		"PURCHASE",
		"PAYMENT",
		"POS TRANSACTION",
		"CARD PURCHASE",
	}
	upper := strings.ToUpper(strings.TrimSpace(name))
	for _, g := range generic {
		if upper == g {
			return true
		}
	}
	return false
}

package ofx

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aclindsa/ofxgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Sample OFX data for testing.
const sampleBankOFX = `OFXHEADER:100
DATA:OFXSGML
VERSION:102
SECURITY:NONE
ENCODING:USASCII
CHARSET:1252
COMPRESSION:NONE
OLDFILEUID:NONE
NEWFILEUID:NONE

<OFX>
<SIGNONMSGSRSV1>
<SONRS>
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<DTSERVER>20240315120000[0:GMT]
<LANGUAGE>ENG
</SONRS>
</SIGNONMSGSRSV1>
<BANKMSGSRSV1>
<STMTTRNRS>
<TRNUID>1
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<STMTRS>
<CURDEF>USD
<BANKACCTFROM>
<BANKID>123456789
<ACCTID>1234567890
<ACCTTYPE>CHECKING
</BANKACCTFROM>
<BANKTRANLIST>
<DTSTART>20240101120000[0:GMT]
<DTEND>20240131120000[0:GMT]
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240115120000[0:GMT]
<TRNAMT>-25.50
<FITID>2024011501
<NAME>STARBUCKS STORE #1234
</STMTTRN>
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240120120000[0:GMT]
<TRNAMT>-125.00
<FITID>2024012001
<NAME>Whole Foods Market
</STMTTRN>
<STMTTRN>
<TRNTYPE>CHECK
<DTPOSTED>20240125120000[0:GMT]
<TRNAMT>-500.00
<FITID>2024012501
<CHECKNUM>1234
<NAME>CHECK #1234
</STMTTRN>
</BANKTRANLIST>
<LEDGERBAL>
<BALAMT>1000.00
<DTASOF>20240131120000[0:GMT]
</LEDGERBAL>
</STMTRS>
</STMTTRNRS>
</BANKMSGSRSV1>
</OFX>`

const sampleCreditCardOFX = `OFXHEADER:100
DATA:OFXSGML
VERSION:102
SECURITY:NONE
ENCODING:USASCII
CHARSET:1252
COMPRESSION:NONE
OLDFILEUID:NONE
NEWFILEUID:NONE

<OFX>
<SIGNONMSGSRSV1>
<SONRS>
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<DTSERVER>20240315120000[0:GMT]
<LANGUAGE>ENG
</SONRS>
</SIGNONMSGSRSV1>
<CREDITCARDMSGSRSV1>
<CCSTMTTRNRS>
<TRNUID>1
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<CCSTMTRS>
<CURDEF>USD
<CCACCTFROM>
<ACCTID>4111111111111111
</CCACCTFROM>
<BANKTRANLIST>
<DTSTART>20240101120000[0:GMT]
<DTEND>20240131120000[0:GMT]
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240110120000[0:GMT]
<TRNAMT>-45.99
<FITID>CC2024011001
<NAME>AMAZON.COM*RT4Y7HG2
</STMTTRN>
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240115120000[0:GMT]
<TRNAMT>-15.00
<FITID>CC2024011501
<NAME>NETFLIX.COM
</STMTTRN>
<STMTTRN>
<TRNTYPE>CREDIT
<DTPOSTED>20240120120000[0:GMT]
<TRNAMT>250.00
<FITID>CC2024012001
<NAME>PAYMENT THANK YOU
</STMTTRN>
<STMTTRN>
<TRNTYPE>FEE
<DTPOSTED>20240125120000[0:GMT]
<TRNAMT>-95.00
<FITID>CC2024012501
<NAME>ANNUAL MEMBERSHIP FEE
<MEMO>RENEWAL
</STMTTRN>
</BANKTRANLIST>
<LEDGERBAL>
<BALAMT>-500.00
<DTASOF>20240131120000[0:GMT]
</LEDGERBAL>
</CCSTMTRS>
</CCSTMTTRNRS>
</CREDITCARDMSGSRSV1>
</OFX>`

func TestParseFile(t *testing.T) {
	tests := []struct {
		name          string
		ofxData       string
		expectedCount int
		expectedError bool
	}{
		{name: "valid bank statement", ofxData: sampleBankOFX, expectedCount: 3},
		{name: "valid credit card statement", ofxData: sampleCreditCardOFX, expectedCount: 3},
		{name: "invalid OFX data", ofxData: "not valid OFX", expectedError: true},
		{name: "empty OFX", ofxData: "", expectedError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := NewParser().ParseFile(context.Background(), strings.NewReader(tt.ofxData))
			if tt.expectedError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, result.Transactions, tt.expectedCount)
		})
	}
}

func TestParseBankTransactions(t *testing.T) {
	result, err := NewParser().ParseFile(context.Background(), strings.NewReader(sampleBankOFX))
	require.NoError(t, err)
	require.Len(t, result.Transactions, 3)
	assert.Equal(t, []string{"1234567890"}, result.Accounts)

	tx1 := result.Transactions[0]
	assert.Empty(t, tx1.ID)
	assert.Equal(t, "STARBUCKS STORE #1234", tx1.Merchant)
	assert.Equal(t, "STARBUCKS STORE #1234", tx1.RawDescription)
	assert.Equal(t, 25.50, tx1.Amount)
	assert.Equal(t, "1234567890", tx1.CardLabel)
	assert.Equal(t, "USD", tx1.Currency)
	assert.Equal(t, "Other", tx1.Category)
	assert.Equal(t, time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC), tx1.Date)
	assert.Equal(t, tx1.GenerateHash(), tx1.Hash)

	assert.Equal(t, "Whole Foods Market", result.Transactions[1].Merchant)
	assert.Equal(t, 125.00, result.Transactions[1].Amount)
	assert.Equal(t, 500.00, result.Transactions[2].Amount)
}

func TestParseCreditCardTransactions(t *testing.T) {
	result, err := NewParser().ParseFile(context.Background(), strings.NewReader(sampleCreditCardOFX))
	require.NoError(t, err)
	require.Len(t, result.Transactions, 3)
	assert.Equal(t, 1, result.Skipped, "payment credit should be skipped")

	amazon := result.Transactions[0]
	assert.Equal(t, "AMAZON.COM*RT4Y7HG2", amazon.Merchant)
	assert.Equal(t, 45.99, amazon.Amount)
	assert.Equal(t, "4111111111111111", amazon.CardLabel)

	fee := result.Transactions[2]
	assert.Equal(t, "ANNUAL MEMBERSHIP FEE", fee.Merchant)
	assert.Equal(t, "Bills & Utilities", fee.Category)
	assert.Equal(t, "ANNUAL MEMBERSHIP FEE RENEWAL", fee.RawDescription)
	assert.Equal(t, 95.00, fee.Amount)
}

func TestExtractMerchantName(t *testing.T) {
	parser := NewParser()

	tests := []struct {
		name     string
		tx       ofxgo.Transaction
		expected string
	}{
		{
			name:     "remove POS prefix",
			tx:       ofxgo.Transaction{Name: "POS PURCHASE STARBUCKS"},
			expected: "STARBUCKS",
		},
		{
			name:     "remove DEBIT CARD prefix",
			tx:       ofxgo.Transaction{Name: "DEBIT CARD PURCHASE WHOLE FOODS"},
			expected: "WHOLE FOODS",
		},
		{
			name:     "strip posting date",
			tx:       ofxgo.Transaction{Name: "03/14 TRADER JOES"},
			expected: "TRADER JOES",
		},
		{
			name:     "generic name uses memo",
			tx:       ofxgo.Transaction{Name: "PURCHASE", Memo: "SWEETGREEN NYC"},
			expected: "SWEETGREEN NYC",
		},
		{
			name:     "payee wins",
			tx:       ofxgo.Transaction{Name: "SQ *SHOP", Payee: &ofxgo.Payee{Name: "Corner Shop"}},
			expected: "Corner Shop",
		},
		{
			name:     "trim whitespace",
			tx:       ofxgo.Transaction{Name: "  AMAZON.COM  "},
			expected: "AMAZON.COM",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, parser.extractMerchantName(tt.tx))
		})
	}
}

func TestPreprocessOFX(t *testing.T) {
	in := "\n\n<OFX>\n<SEVERITY>Info</SEVERITY>\n<CODE\n"
	out := NewParser().preprocessOFX(in)
	assert.Equal(t, "<OFX>\n<SEVERITY>INFO</SEVERITY>\n<CODE>\n", out)
}

func TestParseFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b-card.qfx"), []byte(sampleCreditCardOFX), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a-bank.OFX"), []byte(sampleBankOFX), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignore"), 0o600))

	paths, err := FindStatements(dir)
	require.NoError(t, err)
	require.Len(t, paths, 2)
	assert.Equal(t, "a-bank.OFX", filepath.Base(paths[0]))

	results, err := NewParser().ParseFiles(context.Background(), paths, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Len(t, results[0].Result.Transactions, 3)
	assert.Equal(t, []string{"4111111111111111"}, results[1].Result.Accounts)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "c-bad.ofx"), []byte("garbage"), 0o600))
	paths, err = FindStatements(dir)
	require.NoError(t, err)
	_, err = NewParser().ParseFiles(context.Background(), paths, 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "c-bad.ofx")
}

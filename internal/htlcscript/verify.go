package htlcscript

import "bytes"

// Verify rebuilds the redeem script from expected and reports whether it is
// byte-identical to candidate. Used to confirm that a script shown by a
// counterparty is structurally the script they claim it to be.
func Verify(expected Params, candidate []byte) (bool, error) {
	built, err := Build(expected)
	if err != nil {
		return false, err
	}
	return bytes.Equal(built.RedeemScript, candidate), nil
}

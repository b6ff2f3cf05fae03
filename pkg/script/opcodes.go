package script

// Bitcoin Script opcodes used to recognize the one output shape the
// mempool's standardness policy checks directly: P2PKH.
const (
	OP_DUP         = 0x76
	OP_HASH160     = 0xa9
	OP_EQUALVERIFY = 0x88
	OP_CHECKSIG    = 0xac
)

package consensus

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// gettxoutproof output for 61a05151711e4716f31f7a3bb956d1b030c4d92093b843fa2e771b95564f0704
// in main net block 0000000000000000007962066dcd6675830883516bcf40047d42740a85eb2919.
const mainnetProofHex = "00000020ecf348128755dbeea5deb8eddf64566d9d4e59bc65d485000000000000000000901f0d92a66ee7dcefd02fa282ca63ce85288bab628253da31ef259b24abe8a0470a385a45960018e8d672f8a90a00000d0bdabada1fb6e3cef7f5c6e234621e3230a2f54efc1cba0b16375d9980ecbc023cbef3ba8d8632ea220927ec8f95190b30769eb35d87618f210382c9445f192504074f56951b772efa43b89320d9c430b0d156b93b7a1ff316471e715151a0619a39392657f25289eb713168818bd5b37476f1bc59b166deaa736d8a58756f9d7ce2aef46d8004c5fe3293d883838f87b5f1da03839878895b71530e9ff89338bb6d4578b3c3135ff3e8671f9a64d43b22e14c2893e8271cecd420f11d2359307403bb1f3128885b3912336045269ef909d64576b93e816fa522c8c027fe408700dd4bdee0254c069ccb728d3516fe1e27578b31d70695e3e35483da448f3a951273e018de7f2a8f657064b013c6ede75c74bbd7f98fdae1c2ac6789ee7b21a791aa29d60e89fff2d1d2b1ada50aa9f59f403823c8c58bb092dc58dc09b28158ca15447da9c3bedb0b160f3fe1668d5a27716e27661bcb75ddbf3468f5c76b7bed1004c6b4df4da2ce80b831a7c260b515e6355e1c306373d2233e8de6fda3674ed95d17a01a1f64b27ba88c3676024fbf8d5dd962ffc4d5e9f3b1700763ab88047f7d0000"

const testnetProofHex = "00000020b0b3d77b97015b519553423c96642b33ca534c50ecefd133640000000000000029a0a725684aeca24af83e3ba0a3e3ee56adfdf032d19e5acba6d0a262e1580ca354915fd4c8001ac42a7b3a1000000005df41db041b26536b5b7fd7aeea4ea6bdb64f7039e4a566b1fa138a07ed2d3705932955c94ee4755abec003054128b10e0fbcf8dedbbc6236e23286843f1f82a018dc7f5f6fba31aa618fab4acad7df5a5046b6383595798758d30d68c731a14043a50d7cb8560d771fad70c5e52f6d7df26df13ca457655afca2cbab2e3b135c0383525b28fca31296c809641205962eb353fb88a9f3602e98a93b1e9ffd469b023d00"

const regtestProofHex = "0000002031a3479e5062e200279af822d816d02cab347bc3719726541c4fd5edfc3ffd7d680b2710119c752e5fb1b963ad2ee3539f6b3fe0e9b054e681734b631e92c2faf449ca5fffff7f20000000000300000003f0d6a860c811b45bbbe4f0401f26e2fafc40e50bb03782025c0ef82768703d3de263ed560faac245c73725f295eb653268bca3387f9e03b18ca6ab242ce6c54b5625d63322e74c0aa94c794cbf065858bddc5b8ea178fbb0549956149a7d4686010b"

func TestParseMerkleProof_Mainnet(t *testing.T) {
	raw := mustHex(t, mainnetProofHex)
	p, err := ParseMerkleProof(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got, want := p.Header.Hash, mustHash(t, "0000000000000000007962066dcd6675830883516bcf40047d42740a85eb2919"); got != want {
		t.Fatalf("block hash: got=%s want=%s", got, want)
	}
	if got, want := p.Header.MerkleRoot, mustHash(t, "a0e8ab249b25ef31da538262ab8b2885ce63ca82a22fd0efdce76ea6920d1f90"); got != want {
		t.Fatalf("merkle root: got=%s want=%s", got, want)
	}
	if p.TxCount != 2729 || len(p.Hashes) != 13 || len(p.Flags) != 32 {
		t.Fatalf("shape: txs=%d hashes=%d flags=%d", p.TxCount, len(p.Hashes), len(p.Flags))
	}
	if got, want := p.Hashes[0], mustHash(t, "02bcec80995d37160bba1cfc4ef5a230321e6234e2c6f5f7cee3b61fdabada0b"); got != want {
		t.Fatalf("first hash: got=%s want=%s", got, want)
	}
	if err := VerifyProofOfWork(p.Header); err != nil {
		t.Fatalf("proof header pow: %v", err)
	}
	if got := p.Bytes(); !bytes.Equal(got, raw) {
		t.Fatalf("re-encoding mismatch")
	}
}

func TestMerkleProof_ExtractRealProofs(t *testing.T) {
	cases := []struct {
		name     string
		hex      string
		block    string
		tx       string
		position uint32
	}{
		{"mainnet", mainnetProofHex, "0000000000000000007962066dcd6675830883516bcf40047d42740a85eb2919", "61a05151711e4716f31f7a3bb956d1b030c4d92093b843fa2e771b95564f0704", 48},
		{"testnet", testnetProofHex, "000000000000002e59ed7b899b3f0f83c48d0548309a8fb7693297e3937fe1d3", "a0821f3f848632e23662bcdbdef8bc0f0eb128410503c0be5a75e44ec9552993", 8},
		{"regtest", regtestProofHex, "6d90342a7c98096ebe196154fa77ff3ddaaa85c003ce09c8fff6bd90b47586d6", "4bc5e62c24aba68cb1039e7f38a3bc683265eb95f22537c745c2aa0f56ed63e2", 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := ParseMerkleProof(mustHex(t, tc.hex))
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if got, want := p.Header.Hash, mustHash(t, tc.block); got != want {
				t.Fatalf("block hash: got=%s want=%s", got, want)
			}
			res, err := p.Extract()
			if err != nil {
				t.Fatalf("extract: %v", err)
			}
			if res.Root != p.Header.MerkleRoot {
				t.Fatalf("root: got=%s want=%s", res.Root, p.Header.MerkleRoot)
			}
			if got, want := res.TxHash, mustHash(t, tc.tx); got != want {
				t.Fatalf("tx: got=%s want=%s", got, want)
			}
			if res.Position != tc.position {
				t.Fatalf("position=%d want=%d", res.Position, tc.position)
			}
			if err := VerifyMerkleProof(p, res.TxHash, p.Header.MerkleRoot); err != nil {
				t.Fatalf("verify: %v", err)
			}
		})
	}
}

func TestTreeShape(t *testing.T) {
	if treeWidth(2729, 0) != 2729 || treeWidth(2729, 1) != 2729/2+1 || treeWidth(2729, 12) != 1 {
		t.Fatalf("unexpected widths")
	}
	if treeHeight(2729) != 12 || treeHeight(1) != 0 || treeHeight(2) != 1 || treeHeight(3) != 2 {
		t.Fatalf("unexpected heights")
	}
}

func testTxids(n int) []chainhash.Hash {
	out := make([]chainhash.Hash, n)
	for i := range out {
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], uint32(i))
		out[i] = DoubleSHA256(b[:])
	}
	return out
}

func TestBuildMerkleProof_EveryPosition(t *testing.T) {
	for n := 1; n <= 33; n++ {
		txids := testTxids(n)
		root, err := MerkleRoot(txids)
		if err != nil {
			t.Fatalf("n=%d root: %v", n, err)
		}
		header := BlockHeader{Version: 4, MerkleRoot: root, Bits: 0x207fffff}
		for i := 0; i < n; i++ {
			matches := make([]bool, n)
			matches[i] = true
			p, err := BuildMerkleProof(header, txids, matches)
			if err != nil {
				t.Fatalf("n=%d i=%d build: %v", n, i, err)
			}

			parsed, err := ParseMerkleProof(p.Bytes())
			if err != nil {
				t.Fatalf("n=%d i=%d parse: %v", n, i, err)
			}
			res, err := parsed.Extract()
			if err != nil {
				t.Fatalf("n=%d i=%d extract: %v", n, i, err)
			}
			if res.Root != root || res.TxHash != txids[i] || res.Position != uint32(i) {
				t.Fatalf("n=%d i=%d: got=%+v", n, i, res)
			}
			if err := VerifyMerkleProof(parsed, txids[i], root); err != nil {
				t.Fatalf("n=%d i=%d verify: %v", n, i, err)
			}
		}
	}
}

func TestBuildMerkleProof_MultipleMatchesReportsLast(t *testing.T) {
	txids := testTxids(7)
	root, _ := MerkleRoot(txids)
	p, err := BuildMerkleProof(BlockHeader{MerkleRoot: root}, txids, []bool{false, true, false, false, true, false, false})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	res, err := p.Extract()
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if res.Root != root || res.Position != 4 || res.TxHash != txids[4] {
		t.Fatalf("got=%+v", res)
	}
}

func TestBuildMerkleProof_Rejects(t *testing.T) {
	_, err := BuildMerkleProof(BlockHeader{}, nil, nil)
	requireCode(t, err, MERKLE_ERR_MALFORMED)
	_, err = BuildMerkleProof(BlockHeader{}, testTxids(2), []bool{true})
	requireCode(t, err, MERKLE_ERR_MALFORMED)
}

func TestVerifyMerkleProof_SingleTransactionBlock(t *testing.T) {
	leaf := DoubleSHA256([]byte("coinbase"))
	p := &MerkleProof{TxCount: 1, Hashes: []chainhash.Hash{leaf}, Flags: []bool{true}}
	if err := VerifyMerkleProof(p, leaf, leaf); err != nil {
		t.Fatalf("single-tx proof rejected: %v", err)
	}

	parsed, err := ParseMerkleProof(p.Bytes())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(parsed.Flags) != 8 {
		t.Fatalf("flags must be padded to a byte, got %d", len(parsed.Flags))
	}
	if err := VerifyMerkleProof(parsed, leaf, leaf); err != nil {
		t.Fatalf("padded single-tx proof rejected: %v", err)
	}

	other := DoubleSHA256([]byte("other"))
	requireCode(t, VerifyMerkleProof(p, other, leaf), MERKLE_ERR_INVALID)
	requireCode(t, VerifyMerkleProof(p, leaf, other), MERKLE_ERR_INVALID)
}

func TestMerkleProof_Malformed(t *testing.T) {
	txids := testTxids(4)
	root, _ := MerkleRoot(txids)
	valid, err := BuildMerkleProof(BlockHeader{MerkleRoot: root}, txids, []bool{true, false, false, false})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(valid.Flags) != 5 || len(valid.Hashes) != 3 {
		t.Fatalf("unexpected proof shape: flags=%d hashes=%d", len(valid.Flags), len(valid.Hashes))
	}
	clone := func() *MerkleProof {
		c := *valid
		c.Hashes = append([]chainhash.Hash(nil), valid.Hashes...)
		c.Flags = append([]bool(nil), valid.Flags...)
		return &c
	}
	leaf := DoubleSHA256([]byte("x"))

	cases := []struct {
		name   string
		mutate func(p *MerkleProof)
		code   ErrorCode
	}{
		{"zero_txs", func(p *MerkleProof) { p.TxCount = 0 }, MERKLE_ERR_MALFORMED},
		{"too_many_txs", func(p *MerkleProof) { p.TxCount = MaxTransactionsInProof + 1 }, MERKLE_ERR_MALFORMED},
		{"more_hashes_than_txs", func(p *MerkleProof) { p.TxCount = 2 }, MERKLE_ERR_MALFORMED},
		{"fewer_flags_than_hashes", func(p *MerkleProof) { p.Flags = p.Flags[:2] }, MERKLE_ERR_MALFORMED},
		{"out_of_flags", func(p *MerkleProof) { p.Flags = p.Flags[:3] }, MERKLE_ERR_MALFORMED},
		{"unused_hash", func(p *MerkleProof) { p.Hashes = append(p.Hashes, leaf) }, MERKLE_ERR_MALFORMED},
		{"unused_flag_byte", func(p *MerkleProof) { p.Flags = append(p.Flags, make([]bool, 8)...) }, MERKLE_ERR_MALFORMED},
		{"out_of_hashes", func(p *MerkleProof) {
			p.Flags = []bool{true, true, true, true, true, true, true}
		}, MERKLE_ERR_MALFORMED},
		{"no_match", func(p *MerkleProof) {
			p.Hashes = []chainhash.Hash{root}
			p.Flags = []bool{false}
		}, MERKLE_ERR_INVALID},
		{"duplicate_siblings", func(p *MerkleProof) {
			p.TxCount = 2
			p.Hashes = []chainhash.Hash{leaf, leaf}
			p.Flags = []bool{true, true, false}
		}, MERKLE_ERR_MALFORMED},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := clone()
			tc.mutate(p)
			_, err := p.Extract()
			requireCode(t, err, tc.code)
		})
	}
}

func TestParseMerkleProof_Rejects(t *testing.T) {
	raw := mustHex(t, regtestProofHex)
	cases := []struct {
		name string
		raw  []byte
		code ErrorCode
	}{
		{"short_header", raw[:79], PARSE_ERR_EOF},
		{"no_count", raw[:82], PARSE_ERR_EOF},
		{"truncated_flags", raw[:len(raw)-1], PARSE_ERR_EOF},
		{"trailing", append(append([]byte{}, raw...), 0x00), PARSE_ERR_TRAILING_BYTES},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseMerkleProof(tc.raw)
			requireCode(t, err, tc.code)
		})
	}
}

func TestMerkleRoot(t *testing.T) {
	cases := []struct {
		name  string
		txids []string
		root  string
	}{
		{
			"block_100000",
			[]string{
				"8c14f0db3df150123e6f3dbbf30f8b955a8249b62ac1d1ff16284aefa3d06d87",
				"fff2525b8931402dd09222c50775608f75787bd2b87e56995a7bdd30f79702c4",
				"6359f0868171b1d194cbee1af2f16ea598ae8fad666d9b012c8ed2b79a236ec4",
				"e9a66845e05d5abc0ad04ec80f774a7e585c6e8db975962d069a522137b80c1d",
			},
			"f3e94742aca4b5ef85488dc37c06c3282295ffec960994b2c0d5ac2a25a95766",
		},
		{
			"block_100018_odd",
			[]string{
				"a335b243f5e343049fccac2cf4d70578ad705831940d3eef48360b0ea3829ed4",
				"d5fd11cb1fabd91c75733f4cf8ff2f91e4c0d7afa4fd132f792eacb3ef56a46c",
				"0441cb66ef0cbf78c9ecb3d5a7d0acf878bfdefae8a77541b3519a54df51e7fd",
				"1a8a27d690889b28d6cb4dacec41e354c62f40d85a7f4b2d7a54ffc736c6ff35",
				"1d543d550676f82bf8bf5b0cc410b16fc6fc353b2a4fd9a0d6a2312ed7338701",
			},
			"5766798857e436d6243b46b5c1e0af5b6806aa9c2320b3ffd4ecff7b31fd4647",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			txids := make([]chainhash.Hash, 0, len(tc.txids))
			for _, s := range tc.txids {
				txids = append(txids, mustHash(t, s))
			}
			got, err := MerkleRoot(txids)
			if err != nil {
				t.Fatalf("MerkleRoot: %v", err)
			}
			if want := mustHash(t, tc.root); got != want {
				t.Fatalf("root: got=%s want=%s", got, want)
			}
		})
	}

	single := DoubleSHA256([]byte("only"))
	if got, _ := MerkleRoot([]chainhash.Hash{single}); got != single {
		t.Fatalf("single-leaf root must be the leaf")
	}
	_, err := MerkleRoot(nil)
	requireCode(t, err, MERKLE_ERR_MALFORMED)
}

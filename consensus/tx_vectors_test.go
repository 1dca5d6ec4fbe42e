package consensus

// Transactions taken from main net and from the Bitcoin developer reference.
const (
	coinbaseInputHex = "0000000000000000000000000000000000000000000000000000000000000000" +
		"ffffffff" +
		"29" +
		"034e0105" +
		"062f503253482f0472d35454085fffedf2400000f90f54696d65202620486561" +
		"6c74682021" +
		"00000000"

	spendInputHex = "7b1eabe0209b1fe794124575ef807057c77ada2138ae4fa8d6c4de0398a14f3f" +
		"00000000" +
		"49" +
		"48" +
		"30450221008949f0cb400094ad2b5eb399d59d01c14d73d8fe6e96df1a7150de" +
		"b388ab8935022079656090d7f6bac4c9a94e0aad311a4268e082a725f8aeae05" +
		"73fb12ff866a5f01" +
		"ffffffff"

	p2pkhOutputHex = "f0ca052a01000000" +
		"19" +
		"76a914cbc20a7664f2f69e5355aa427045bc15e7c6c77288ac"

	sampleTxHex = "01000000" + "02" + coinbaseInputHex + spendInputHex + "01" + p2pkhOutputHex + "00000000"

	// c586389e5e4b3acb9d6c8be1c19ae8ab2795397633176f5a6442a261bbdefc3a
	segwitTxHex = "0200000000010140d43a99926d43eb0e619bf0b3d83b4a31f60c176beecfb9d35bf45e54d0f7420100000017160014a4b4ca48de0b3fffc15404a1acdc8dbaae226955ffffffff0100e1f5050000000017a9144a1154d50b03292b3024370901711946cb7cccc387024830450221008604ef8f6d8afa892dee0f31259b6ce02dd70c545cfcfed8148179971876c54a022076d771d6e91bed212783c9b06e0de600fab2d518fad6f15a2b191d7fbd262a3e0121039d25ab79f41f75ceaf882411fd41fa670a4c672c23ffaf0e361a969cde0692e800000000"

	multiInputTxHex = "02000000000105a6f0d82981c7d7fd424c97548be1b246161097532e102c0457f46ad5870698910000000000ffffffffa6f0d82981c7d7fd424c97548be1b246161097532e102c0457f46ad5870698910d00000000ffffffffa6f0d82981c7d7fd424c97548be1b246161097532e102c0457f46ad5870698914c00000000ffffffffa6f0d82981c7d7fd424c97548be1b246161097532e102c0457f46ad5870698912e00000000ffffffffa6f0d82981c7d7fd424c97548be1b246161097532e102c0457f46ad5870698913500000000ffffffff01a032eb0500000000160014c97ec9439f77c079983582847a09b6b5e6fd2e86024830450221008bf5d1ea3868a10a7acd5e793fd5f8a2468b5546d1f1e721d77f7666d457a786022065c9167fd6300be52f593267b3af49be1c8b87c333063cc0f6412e9902b80520012103eec785a16054b40bfe15c287beca7f214f88742501fabbe18251502c0ea0588f02483045022100d4c7892b69a49a44163c9d61d89ea1e9273247bd6c8f332d57abbb30257c2f5c022035b96a00ae2a7fece639af849e281238bc98bc7d971fe906af15a874a4eb1844012103eec785a16054b40bfe15c287beca7f214f88742501fabbe18251502c0ea0588f0247304402204336575b363780eb2b4c7bdee9b0109d3b92965f9ba431beae1c4803d0e0704a0220667228268d99dff834dc4d372063d6dd4f80e0df2b3a0168bd4748e16c70aeec012103eec785a16054b40bfe15c287beca7f214f88742501fabbe18251502c0ea0588f0247304402203b5e9dcca5937a6bae4b844ad598316ef30ad82512a2a08e534b9a2af58dceea02202bef0b6d1f421b6416d3dc0e2d99f78e5e4892933dd5973cdcab005109917ffd012103eec785a16054b40bfe15c287beca7f214f88742501fabbe18251502c0ea0588f0248304502210092f9f9eaecf35f7b11d7f12026874fd2e0f595fb216885110ae53ea94fd5744502203867f4e1af5b4ea84721ea16443d25126e917ab52fc50eb7613ab90423f3df25012103eec785a16054b40bfe15c287beca7f214f88742501fabbe18251502c0ea0588f00000000"

	// Spends a P2PKH output; the scriptSig ends with the compressed key of
	// 7e7d94d0ddc21d83bfbcfc7798e4547edf0832aa.
	p2pkhSpendTxHex = "0100000001c15041a06deb6b3818b022fac558da4ce2097f0860c8f642105bbad9d29be02a010000006c493046022100cfd2a2d332b29adce119c55a9fadd3c073332024b7e272513e51623ca15993480221009b482d7f7b4d479aff62bdcdaea54667737d56f8d4d63dd03ec3ef651ed9a25401210325f8b039a11861659c9bf03f43fc4ea055f3a71cd60c7b1fd474ab578f9977faffffffff0290d94000000000001976a9148ed243a7be26080a1a8cf96b53270665f1b8dd2388ac4083086b000000001976a9147e7d94d0ddc21d83bfbcfc7798e4547edf0832aa88ac00000000"

	// Spends a 1-of-1 bare multisig wrapped in P2SH.
	p2shMultisigSpendTxHex = "0100000001c8cc2b56525e734ff63a13bc6ad06a9e5664df8c67632253a8e36017aee3ee40000000009000483045022100ad0851c69dd756b45190b5a8e97cb4ac3c2b0fa2f2aae23aed6ca97ab33bf88302200b248593abc1259512793e7dea61036c601775ebb23640a0120b0dba2c34b79001455141042f90074d7a5bf30c72cf3a8dfd1381bdbd30407010e878f3a11269d5f74a58788505cdca22ea6eab7cfb40dc0e07aba200424ab0d79122a653ad0c7ec9896bdf51aefeffffff0120f40e00000000001976a9141d30342095961d951d306845ef98ac08474b36a088aca7270400"

	// Spends P2WPKH nested in P2SH (35PLQyoXs2sk9QDqMv7bBGowxP1pjwXAMe).
	p2shSegwitSpendTxHex = "02000000000101a1dcf3ca033463e346339642dd7305e33de4ce5ab179d1e19b1eb146534421660000000017160014a97a9058829417d4c581ad5004b6e46cc680063dfdffffff01b9010000000000001600143b05c08e224ddec538ac7aa2e3b6583b983807a302473044022051480b10ef40d12bce982d1d08176a403f176dd3e51189c07a0a9584ddb8e91602204a02134b2b892904a3519da0044e97da9ae78232f8f7678fea0b6531bf3104130121039dcac4d315739516bf5cea98bc6a9cfb49cb6269beb67c520bc5ecacc3c7d47206c70900"
)

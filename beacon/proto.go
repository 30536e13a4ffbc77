package beacon

import (
	"go.dedis.ch/onet/v3/network"
)

func init() {
	network.RegisterMessages(&InitDKGRequest{}, &InitDKGReply{},
		&RandomnessRequest{}, &RandomnessReply{})
}

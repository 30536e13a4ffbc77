package raffle

import (
	"go.dedis.ch/onet/v3/network"
)

func init() {
	network.RegisterMessages(&InitUnitRequest{}, &InitUnitReply{},
		&EnterRequest{}, &EnterReply{},
		&CheckReadyRequest{}, &CheckReadyReply{},
		&StartSelectionRequest{}, &StartSelectionReply{},
		&FulfillRequest{}, &FulfillReply{},
		&RoundInfoRequest{}, &RoundInfoReply{},
		&GetParticipantRequest{}, &GetParticipantReply{},
		&GetWinnersRequest{}, &GetWinnersReply{},
		&RetryPayoutRequest{}, &RetryPayoutReply{})
}

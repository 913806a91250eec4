// Command demo walks through two rounds of a toy EAP-style authentication
// conversation against the state engine: round one accepts with no prior
// token and gets told to continue (Get-User), round two arrives carrying
// the token the engine minted and finishes with Pass.
//
// The decoder, sender, resolver and interpreter below are fakes: a real
// RADIUS/TACACS+ listener, policy-language interpreter and socket layer
// live outside this package.
package main

import (
	"context"
	"fmt"
	"log"

	"github.com/coreradius/statengine"
	"github.com/coreradius/statengine/machine"
)

type fakeDecoder struct{}

func (fakeDecoder) Decode(context.Context, []byte) machine.DecodeResult {
	return machine.DecodeResult{OK: true}
}

type fakeSender struct{}

func (fakeSender) Send(_ context.Context, reply *machine.Reply, req *machine.Request, _ []byte) error {
	fmt.Printf("round done: status=%q attributes=%v\n", req.Status, reply.Packet.Attributes)
	return nil
}

type fakeResolver struct{}

func (fakeResolver) Resolve(_ string, name1, name2 string) (machine.Section, bool) {
	switch name1 {
	case "recv", "send":
		return name1, true
	case "process":
		return name2, name2 == "demo"
	}
	return nil, false
}

// scriptedInterpreter plays back one verdict per Resume call, branching on
// which phase the request is in; good enough to drive the demo's two
// scripted rounds without a real policy-language interpreter.
type scriptedInterpreter struct {
	round int
}

func (s *scriptedInterpreter) Push(machine.Section, machine.Verdict, int) {}

func (s *scriptedInterpreter) Resume(req *machine.Request) machine.Verdict {
	switch req.Phase() {
	case machine.StateRecv:
		req.ControlAttributes = []statengine.Attribute{{Name: "Auth-Type", Value: "demo"}}
		return machine.VerdictOK

	case machine.StateProcess:
		if s.round == 0 {
			req.Status = machine.StatusGetUser
			req.HaveSequence = true
			req.SequenceNumber = 1
			req.StateArena = statengine.NewArena()
			req.StateSideData = map[string]statengine.SideDatum{
				"session": {Value: "demo-session", Persistable: true},
			}
			return machine.VerdictHandled
		}
		return machine.VerdictOK

	default:
		return machine.VerdictOK
	}
}

func main() {
	table, err := statengine.NewStateTable(nil, statengine.Config{MaxSessions: 16, Timeout: 30})
	if err != nil {
		log.Fatal(err)
	}

	interp := &scriptedInterpreter{round: 0}
	m := machine.New(table, fakeDecoder{}, fakeSender{}, fakeResolver{}, interp, "default")

	// Round one: no inbound token.
	inbound1 := &statengine.Packet{}
	outbound1 := &statengine.Packet{}
	req1 := machine.NewRequest(machine.Authentication, "Access-Request", inbound1, outbound1, nil)

	if err := m.Run(context.Background(), req1); err != nil {
		log.Fatal(err)
	}

	tok, _, ok := outbound1.Token()
	if !ok {
		log.Fatal("expected engine to mint a continuation token")
	}
	fmt.Printf("table size after round one: %d\n", table.Size())

	// Round two: client echoes the token the engine minted.
	inbound2 := &statengine.Packet{}
	inbound2.SetToken(tok)
	outbound2 := &statengine.Packet{}
	req2 := machine.NewRequest(machine.Authentication, "Access-Request", inbound2, outbound2, nil)

	interp.round = 1
	if err := m.Run(context.Background(), req2); err != nil {
		log.Fatal(err)
	}

	fmt.Printf("table size after round two: %d\n", table.Size())
}

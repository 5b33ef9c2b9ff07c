package midibridge

import (
	"fmt"

	gomidi "gitlab.com/gomidi/midi/v2"
)

// rtmidiPlatform adapts whatever gomidi driver the composition root
// registered. Every call recovers from driver panics (rtmidi aborts hard
// when no sound server is present, and gomidi panics when no driver is
// registered at all) and reports them as errors so the bridge can degrade
// to StatusUnavailable.
type rtmidiPlatform struct{}

func inPortID(number int, name string) string {
	return fmt.Sprintf("in:%d:%s", number, name)
}

func outPortID(number int, name string) string {
	return fmt.Sprintf("out:%d:%s", number, name)
}

func (rtmidiPlatform) ports() (ins, outs []portInfo, err error) {
	defer func() {
		if r := recover(); r != nil {
			ins, outs = nil, nil
			err = fmt.Errorf("midi driver: %v", r)
		}
	}()
	for _, p := range gomidi.GetInPorts() {
		ins = append(ins, portInfo{
			id:   inPortID(p.Number(), p.String()),
			name: p.String(),
			dir:  DirectionInput,
		})
	}
	for _, p := range gomidi.GetOutPorts() {
		outs = append(outs, portInfo{
			id:   outPortID(p.Number(), p.String()),
			name: p.String(),
			dir:  DirectionOutput,
		})
	}
	return ins, outs, nil
}

func (rtmidiPlatform) listen(portID string, sysex bool, recv func(data []byte)) (stop func(), err error) {
	defer func() {
		if r := recover(); r != nil {
			stop = nil
			err = fmt.Errorf("midi driver: %v", r)
		}
	}()
	for _, p := range gomidi.GetInPorts() {
		if inPortID(p.Number(), p.String()) != portID {
			continue
		}
		var opts []gomidi.Option
		if sysex {
			opts = append(opts, gomidi.UseSysEx())
		}
		return gomidi.ListenTo(p, func(msg gomidi.Message, timestampms int32) {
			recv(msg.Bytes())
		}, opts...)
	}
	return nil, fmt.Errorf("midi input %q not found", portID)
}

func (rtmidiPlatform) sender(portID string) (send func(data []byte) error, err error) {
	defer func() {
		if r := recover(); r != nil {
			send = nil
			err = fmt.Errorf("midi driver: %v", r)
		}
	}()
	for _, p := range gomidi.GetOutPorts() {
		if outPortID(p.Number(), p.String()) != portID {
			continue
		}
		s, err := gomidi.SendTo(p)
		if err != nil {
			return nil, err
		}
		return func(data []byte) error {
			return s(gomidi.Message(data))
		}, nil
	}
	return nil, fmt.Errorf("midi output %q not found", portID)
}

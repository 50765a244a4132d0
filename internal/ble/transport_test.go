package ble

import (
	"bytes"
	"testing"

	"github.com/muurk/mikettle/internal/kettle"
)

func TestTransport_NotConnected(t *testing.T) {
	tr := NewTransport(nil)

	if tr.Connected() {
		t.Error("new transport reports connected")
	}
	if _, err := tr.ReadCharacteristic(kettle.HandleStatus); !kettle.IsTransportFault(err) {
		t.Errorf("ReadCharacteristic() error = %v, want transport fault", err)
	}
	if err := tr.WriteCharacteristic(kettle.HandleAuth, []byte{1}, true); !kettle.IsTransportFault(err) {
		t.Errorf("WriteCharacteristic() error = %v, want transport fault", err)
	}
	if err := tr.WriteDescriptor(statusNotifyDescriptor, kettle.SubscribeValue, true); !kettle.IsTransportFault(err) {
		t.Errorf("WriteDescriptor() error = %v, want transport fault", err)
	}
	if err := tr.Disconnect(); err != nil {
		t.Errorf("Disconnect() while disconnected error = %v", err)
	}
}

func TestTransport_ReadCharacteristic(t *testing.T) {
	name := &fakeCharacteristic{value: []byte("MiKettle")}
	broken := &fakeCharacteristic{readErr: errLinkLost}
	tr, _ := connectedTransport(map[kettle.Handle]*fakeCharacteristic{
		kettle.HandleName:     name,
		kettle.HandleKeepWarm: broken,
	})

	got, err := tr.ReadCharacteristic(kettle.HandleName)
	if err != nil {
		t.Fatalf("ReadCharacteristic() error = %v", err)
	}
	if string(got) != "MiKettle" {
		t.Errorf("ReadCharacteristic() = %q, want %q", got, "MiKettle")
	}

	if _, err := tr.ReadCharacteristic(kettle.HandleKeepWarm); !kettle.IsTransportFault(err) {
		t.Errorf("failed read error = %v, want transport fault", err)
	}
	if _, err := tr.ReadCharacteristic(kettle.HandleFirmwareVersion); !kettle.IsMissingCharacteristic(err) {
		t.Errorf("absent handle error = %v, want missing characteristic", err)
	}
}

func TestTransport_WriteCharacteristic(t *testing.T) {
	auth := &fakeCharacteristic{}
	tr, _ := connectedTransport(map[kettle.Handle]*fakeCharacteristic{kettle.HandleAuth: auth})

	tests := []struct {
		name         string
		data         []byte
		withResponse bool
	}{
		{"request", []byte{0x90, 0xCA, 0x85, 0xDE}, true},
		{"command", []byte{0x01}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tr.WriteCharacteristic(kettle.HandleAuth, tt.data, tt.withResponse); err != nil {
				t.Fatalf("WriteCharacteristic() error = %v", err)
			}
			last := auth.written[len(auth.written)-1]
			if !bytes.Equal(last, tt.data) {
				t.Errorf("written = % X, want % X", last, tt.data)
			}
		})
	}

	auth.writeErr = errLinkLost
	if err := tr.WriteCharacteristic(kettle.HandleAuth, []byte{1}, true); !kettle.IsTransportFault(err) {
		t.Errorf("failed write error = %v, want transport fault", err)
	}
}

func TestTransport_WriteDescriptorSubscribes(t *testing.T) {
	status := &fakeCharacteristic{}
	tr, _ := connectedTransport(map[kettle.Handle]*fakeCharacteristic{kettle.HandleStatus: status})

	var (
		gotHandle kettle.Handle
		gotData   []byte
	)
	tr.SetNotificationHandler(func(h kettle.Handle, payload []byte) {
		gotHandle = h
		gotData = payload
	})

	if err := tr.WriteDescriptor(statusNotifyDescriptor, kettle.SubscribeValue, true); err != nil {
		t.Fatalf("WriteDescriptor() error = %v", err)
	}
	if status.enables != 1 {
		t.Fatalf("EnableNotifications called %d times, want 1", status.enables)
	}

	frame := []byte{1, 1, 0, 0, 75, 60, 1, 0, 0, 0, 34}
	if !status.fire(frame) {
		t.Fatal("subscribe installed no callback")
	}
	frame[0] = 9

	if gotHandle != kettle.HandleStatus {
		t.Errorf("handler handle = %d, want %d", gotHandle, kettle.HandleStatus)
	}
	if len(gotData) != 11 || gotData[0] != 1 {
		t.Errorf("handler payload = %v, want a copy of the frame", gotData)
	}

	if err := tr.WriteDescriptor(statusNotifyDescriptor, []byte{0, 0}, true); err != nil {
		t.Fatalf("unsubscribe error = %v", err)
	}
	if status.fire(frame) {
		t.Error("unsubscribe left a callback installed")
	}
}

func TestTransport_WriteDescriptorErrors(t *testing.T) {
	status := &fakeCharacteristic{notifyErr: errLinkLost}
	tr, _ := connectedTransport(map[kettle.Handle]*fakeCharacteristic{kettle.HandleStatus: status})

	if err := tr.WriteDescriptor(statusNotifyDescriptor, kettle.SubscribeValue, true); !kettle.IsTransportFault(err) {
		t.Errorf("subscribe failure error = %v, want transport fault", err)
	}
	if err := tr.WriteDescriptor(authNotifyDescriptor, kettle.SubscribeValue, true); !kettle.IsMissingCharacteristic(err) {
		t.Errorf("absent target error = %v, want missing characteristic", err)
	}
	if err := tr.WriteDescriptor(kettle.HandleKeepWarm+1, kettle.SubscribeValue, true); !kettle.IsValidationError(err) {
		t.Errorf("non-notify descriptor error = %v, want validation error", err)
	}
}

func TestTransport_NotifyForwardsCopy(t *testing.T) {
	tr := NewTransport(nil)

	var (
		gotHandle kettle.Handle
		gotData   []byte
	)
	tr.SetNotificationHandler(func(h kettle.Handle, payload []byte) {
		gotHandle = h
		gotData = payload
	})

	buf := []byte{1, 2, 3}
	tr.notify(kettle.HandleStatus, buf)
	buf[0] = 9

	if gotHandle != kettle.HandleStatus || gotData[0] != 1 {
		t.Errorf("handler got %d %v", gotHandle, gotData)
	}
}

func TestTransport_NotifyWithoutHandler(t *testing.T) {
	tr := NewTransport(nil)
	tr.notify(kettle.HandleAuth, []byte{1})
}

func TestTransport_Disconnect(t *testing.T) {
	tr, dev := connectedTransport(map[kettle.Handle]*fakeCharacteristic{kettle.HandleName: {}})

	if !tr.Connected() {
		t.Fatal("attached transport reports disconnected")
	}
	if err := tr.Disconnect(); err != nil {
		t.Fatalf("Disconnect() error = %v", err)
	}
	if dev.disconnects != 1 {
		t.Errorf("device disconnects = %d, want 1", dev.disconnects)
	}
	if tr.Connected() {
		t.Error("transport still connected after Disconnect()")
	}
	if _, err := tr.ReadCharacteristic(kettle.HandleName); !kettle.IsTransportFault(err) {
		t.Errorf("read after Disconnect() error = %v, want transport fault", err)
	}

	tr, dev = connectedTransport(nil)
	dev.err = errLinkLost
	if err := tr.Disconnect(); !kettle.IsTransportFault(err) {
		t.Errorf("failed disconnect error = %v, want transport fault", err)
	}
	if tr.Connected() {
		t.Error("failed disconnect left the transport connected")
	}
}

func TestTransport_ConnectRejectsUnknownInterface(t *testing.T) {
	tr := NewTransport(nil)
	if err := tr.Connect("66:55:44:33:22:11", "hci9"); !kettle.IsValidationError(err) {
		t.Errorf("Connect() error = %v, want validation error", err)
	}
	if tr.Connected() {
		t.Error("rejected Connect() left the transport connected")
	}
}

package api

import "context"

const machinesPath = "/api/machines"

// Machine is a monitored machine.
type Machine struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Type      string `json:"type"`
	Timestamp Time   `json:"timestamp"`
}

// MachineInput is the create/update payload.
type MachineInput struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// MachineService manages machines.
type MachineService struct {
	d Doer
}

// NewMachineService creates a MachineService.
func NewMachineService(d Doer) *MachineService {
	return &MachineService{d: d}
}

// List returns all machines in server order.
func (s *MachineService) List(ctx context.Context) ([]Machine, error) {
	var out struct {
		Machines []Machine `json:"machines"`
	}
	if err := get(ctx, s.d, machinesPath, &out); err != nil {
		return nil, err
	}
	return out.Machines, nil
}

// Get returns machine id.
func (s *MachineService) Get(ctx context.Context, id int64) (*Machine, error) {
	var out struct {
		Machine Machine `json:"machine"`
	}
	if err := get(ctx, s.d, idPath(machinesPath, id), &out); err != nil {
		return nil, err
	}
	return &out.Machine, nil
}

// Create adds a machine and returns its id.
func (s *MachineService) Create(ctx context.Context, in MachineInput) (int64, error) {
	var out struct {
		MachineID int64 `json:"machineId"`
	}
	if err := post(ctx, s.d, machinesPath, in, &out); err != nil {
		return 0, err
	}
	return out.MachineID, nil
}

// Update replaces the name and type of machine id.
func (s *MachineService) Update(ctx context.Context, id int64, in MachineInput) error {
	return put(ctx, s.d, idPath(machinesPath, id), in, nil)
}

// Delete removes machine id.
func (s *MachineService) Delete(ctx context.Context, id int64) error {
	return del(ctx, s.d, idPath(machinesPath, id))
}

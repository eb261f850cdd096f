package storage

import (
	"encoding/json"

	"github.com/pkg/errors"

	"flexevo/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

// CurrentVersion stamps a record with the versions this build writes.
func CurrentVersion() model.VersionedRecord {
	return model.VersionedRecord{SchemaVersion: CurrentSchemaVersion, CodecVersion: CurrentCodecVersion}
}

func EncodeRun(run model.RunRecord) ([]byte, error) {
	return json.Marshal(run)
}

func DecodeRun(data []byte) (model.RunRecord, error) {
	var run model.RunRecord
	if err := json.Unmarshal(data, &run); err != nil {
		return model.RunRecord{}, errors.Wrap(err, "unmarshal run")
	}
	if err := checkVersion(run.VersionedRecord); err != nil {
		return model.RunRecord{}, err
	}
	return run, nil
}

func EncodePopulation(snapshot model.PopulationSnapshot) ([]byte, error) {
	return json.Marshal(snapshot)
}

func DecodePopulation(data []byte) (model.PopulationSnapshot, error) {
	var snapshot model.PopulationSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return model.PopulationSnapshot{}, errors.Wrap(err, "unmarshal population")
	}
	if err := checkVersion(snapshot.VersionedRecord); err != nil {
		return model.PopulationSnapshot{}, err
	}
	for i, member := range snapshot.Members {
		if err := member.Genome.Validate(); err != nil {
			return model.PopulationSnapshot{}, errors.Wrapf(err, "member %d", i)
		}
	}
	return snapshot, nil
}

func EncodeGenerations(generations []model.GenerationRecord) ([]byte, error) {
	return json.Marshal(generations)
}

func DecodeGenerations(data []byte) ([]model.GenerationRecord, error) {
	var generations []model.GenerationRecord
	if err := json.Unmarshal(data, &generations); err != nil {
		return nil, errors.Wrap(err, "unmarshal generations")
	}
	return generations, nil
}

func checkVersion(v model.VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return errors.Wrapf(ErrVersionMismatch, "schema=%d codec=%d", v.SchemaVersion, v.CodecVersion)
	}
	return nil
}

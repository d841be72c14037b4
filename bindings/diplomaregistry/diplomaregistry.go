// Package diplomaregistry contains a Go binding for the DiplomaRegistry
// contract, in the layout abigen produces for read-only callers. State
// changing methods are exposed as call data packers because transactions
// are signed by an external agent, not by a bind.TransactOpts.
package diplomaregistry

import (
	"errors"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
)

// DiplomaRegistryABI is the input ABI used to generate the binding from.
const DiplomaRegistryABI = `[
	{"inputs":[],"stateMutability":"nonpayable","type":"constructor"},
	{"inputs":[{"internalType":"string","name":"universityName","type":"string"},{"internalType":"address","name":"universityAddress","type":"address"}],"name":"authorizeUniversity","outputs":[],"stateMutability":"nonpayable","type":"function"},
	{"inputs":[],"name":"ADMIN_ROLE","outputs":[{"internalType":"bytes32","name":"","type":"bytes32"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"internalType":"bytes32","name":"role","type":"bytes32"},{"internalType":"address","name":"account","type":"address"}],"name":"hasRole","outputs":[{"internalType":"bool","name":"","type":"bool"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"internalType":"bytes32","name":"diplomaHash","type":"bytes32"},{"internalType":"string","name":"universityName","type":"string"},{"internalType":"bytes32","name":"degreeType","type":"bytes32"}],"name":"issueDiploma","outputs":[],"stateMutability":"nonpayable","type":"function"},
	{"inputs":[{"internalType":"string","name":"universityName","type":"string"}],"name":"isUniversityAuthorized","outputs":[{"internalType":"bool","name":"authorized","type":"bool"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"internalType":"bytes32","name":"diplomaHash","type":"bytes32"},{"internalType":"string","name":"universityName","type":"string"}],"name":"verifyDiploma","outputs":[{"internalType":"bool","name":"isValid","type":"bool"},{"internalType":"bool","name":"exists","type":"bool"},{"internalType":"address","name":"issuer","type":"address"},{"internalType":"uint64","name":"issuedAt","type":"uint64"},{"internalType":"bool","name":"revoked","type":"bool"},{"internalType":"bytes32","name":"degreeType","type":"bytes32"}],"stateMutability":"view","type":"function"}
]`

// Method names as they appear in the ABI.
const (
	MethodAdminRole              = "ADMIN_ROLE"
	MethodHasRole                = "hasRole"
	MethodAuthorizeUniversity    = "authorizeUniversity"
	MethodIssueDiploma           = "issueDiploma"
	MethodIsUniversityAuthorized = "isUniversityAuthorized"
	MethodVerifyDiploma          = "verifyDiploma"
)

var (
	parsedABI     abi.ABI
	parsedABIErr  error
	parsedABIOnce sync.Once
)

// ParsedABI returns the parsed contract ABI.
func ParsedABI() (abi.ABI, error) {
	parsedABIOnce.Do(func() {
		parsedABI, parsedABIErr = abi.JSON(strings.NewReader(DiplomaRegistryABI))
	})
	return parsedABI, parsedABIErr
}

// VerifyDiplomaOutput is the output of the verifyDiploma view.
type VerifyDiplomaOutput struct {
	IsValid    bool
	Exists     bool
	Issuer     common.Address
	IssuedAt   uint64
	Revoked    bool
	DegreeType [32]byte
}

// DiplomaRegistryCaller is an auto generated read-only Go binding around a DiplomaRegistry contract.
type DiplomaRegistryCaller struct {
	contract *bind.BoundContract
}

// NewDiplomaRegistryCaller creates a new read-only instance of DiplomaRegistry, bound to a specific deployed contract.
func NewDiplomaRegistryCaller(address common.Address, caller bind.ContractCaller) (*DiplomaRegistryCaller, error) {
	parsed, err := ParsedABI()
	if err != nil {
		return nil, err
	}
	if caller == nil {
		return nil, errors.New("diplomaregistry: nil contract caller")
	}
	contract := bind.NewBoundContract(address, parsed, caller, nil, nil)
	return &DiplomaRegistryCaller{contract: contract}, nil
}

// ADMINROLE is a free data retrieval call binding the contract method 0x75b238fc.
//
// Solidity: function ADMIN_ROLE() view returns(bytes32)
func (_DiplomaRegistry *DiplomaRegistryCaller) ADMINROLE(opts *bind.CallOpts) ([32]byte, error) {
	var out []interface{}
	err := _DiplomaRegistry.contract.Call(opts, &out, MethodAdminRole)
	if err != nil {
		return *new([32]byte), err
	}

	out0 := *abi.ConvertType(out[0], new([32]byte)).(*[32]byte)
	return out0, err
}

// HasRole is a free data retrieval call binding the contract method 0x91d14854.
//
// Solidity: function hasRole(bytes32 role, address account) view returns(bool)
func (_DiplomaRegistry *DiplomaRegistryCaller) HasRole(opts *bind.CallOpts, role [32]byte, account common.Address) (bool, error) {
	var out []interface{}
	err := _DiplomaRegistry.contract.Call(opts, &out, MethodHasRole, role, account)
	if err != nil {
		return *new(bool), err
	}

	out0 := *abi.ConvertType(out[0], new(bool)).(*bool)
	return out0, err
}

// IsUniversityAuthorized is a free data retrieval call binding the contract method isUniversityAuthorized.
//
// Solidity: function isUniversityAuthorized(string universityName) view returns(bool authorized)
func (_DiplomaRegistry *DiplomaRegistryCaller) IsUniversityAuthorized(opts *bind.CallOpts, universityName string) (bool, error) {
	var out []interface{}
	err := _DiplomaRegistry.contract.Call(opts, &out, MethodIsUniversityAuthorized, universityName)
	if err != nil {
		return *new(bool), err
	}

	out0 := *abi.ConvertType(out[0], new(bool)).(*bool)
	return out0, err
}

// VerifyDiploma is a free data retrieval call binding the contract method verifyDiploma.
//
// Solidity: function verifyDiploma(bytes32 diplomaHash, string universityName) view returns(bool isValid, bool exists, address issuer, uint64 issuedAt, bool revoked, bytes32 degreeType)
func (_DiplomaRegistry *DiplomaRegistryCaller) VerifyDiploma(opts *bind.CallOpts, diplomaHash [32]byte, universityName string) (VerifyDiplomaOutput, error) {
	var out []interface{}
	err := _DiplomaRegistry.contract.Call(opts, &out, MethodVerifyDiploma, diplomaHash, universityName)

	outstruct := new(VerifyDiplomaOutput)
	if err != nil {
		return *outstruct, err
	}

	outstruct.IsValid = *abi.ConvertType(out[0], new(bool)).(*bool)
	outstruct.Exists = *abi.ConvertType(out[1], new(bool)).(*bool)
	outstruct.Issuer = *abi.ConvertType(out[2], new(common.Address)).(*common.Address)
	outstruct.IssuedAt = *abi.ConvertType(out[3], new(uint64)).(*uint64)
	outstruct.Revoked = *abi.ConvertType(out[4], new(bool)).(*bool)
	outstruct.DegreeType = *abi.ConvertType(out[5], new([32]byte)).(*[32]byte)

	return *outstruct, err
}

// PackAuthorizeUniversity returns call data for authorizeUniversity.
//
// Solidity: function authorizeUniversity(string universityName, address universityAddress) returns()
func PackAuthorizeUniversity(universityName string, universityAddress common.Address) ([]byte, error) {
	parsed, err := ParsedABI()
	if err != nil {
		return nil, err
	}
	return parsed.Pack(MethodAuthorizeUniversity, universityName, universityAddress)
}

// PackIssueDiploma returns call data for issueDiploma.
//
// Solidity: function issueDiploma(bytes32 diplomaHash, string universityName, bytes32 degreeType) returns()
func PackIssueDiploma(diplomaHash [32]byte, universityName string, degreeType [32]byte) ([]byte, error) {
	parsed, err := ParsedABI()
	if err != nil {
		return nil, err
	}
	return parsed.Pack(MethodIssueDiploma, diplomaHash, universityName, degreeType)
}

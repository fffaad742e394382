package provision

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	iamtypes "github.com/aws/aws-sdk-go-v2/service/iam/types"
	"github.com/aws/aws-sdk-go-v2/service/organizations"
	orgtypes "github.com/aws/aws-sdk-go-v2/service/organizations/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	ststypes "github.com/aws/aws-sdk-go-v2/service/sts/types"
)

// fakeOrgs is an in-memory Organizations API. Accounts created through it
// succeed immediately unless listed in failReasons or stuck.
type fakeOrgs struct {
	orgID    string // empty means the caller is not in an organization yet
	accounts []orgtypes.Account

	// raceOnCreate simulates a concurrent setup: CreateOrganization fails
	// with AlreadyInOrganizationException and the organization appears.
	raceOnCreate string

	failReasons map[string]string // account name -> failure reason
	stuck       map[string]bool   // account name -> never leaves IN_PROGRESS

	createAccountCalls []string // account names, in order
	createAccountEmail []string

	requests map[string]string // request id -> account name
}

func newFakeOrgs(orgID string, accounts ...orgtypes.Account) *fakeOrgs {
	return &fakeOrgs{
		orgID:    orgID,
		accounts: accounts,
		requests: make(map[string]string),
	}
}

func orgAccount(name, id string) orgtypes.Account {
	return orgtypes.Account{Name: aws.String(name), Id: aws.String(id)}
}

func (f *fakeOrgs) DescribeOrganization(ctx context.Context, params *organizations.DescribeOrganizationInput, optFns ...func(*organizations.Options)) (*organizations.DescribeOrganizationOutput, error) {
	if f.orgID == "" {
		return nil, &orgtypes.AWSOrganizationsNotInUseException{Message: aws.String("not in use")}
	}
	return &organizations.DescribeOrganizationOutput{
		Organization: &orgtypes.Organization{Id: aws.String(f.orgID)},
	}, nil
}

func (f *fakeOrgs) CreateOrganization(ctx context.Context, params *organizations.CreateOrganizationInput, optFns ...func(*organizations.Options)) (*organizations.CreateOrganizationOutput, error) {
	if f.raceOnCreate != "" {
		f.orgID = f.raceOnCreate
		return nil, &orgtypes.AlreadyInOrganizationException{Message: aws.String("already in an organization")}
	}
	f.orgID = "o-created"
	return &organizations.CreateOrganizationOutput{
		Organization: &orgtypes.Organization{Id: aws.String(f.orgID)},
	}, nil
}

func (f *fakeOrgs) ListAccounts(ctx context.Context, params *organizations.ListAccountsInput, optFns ...func(*organizations.Options)) (*organizations.ListAccountsOutput, error) {
	return &organizations.ListAccountsOutput{Accounts: f.accounts}, nil
}

func (f *fakeOrgs) CreateAccount(ctx context.Context, params *organizations.CreateAccountInput, optFns ...func(*organizations.Options)) (*organizations.CreateAccountOutput, error) {
	name := aws.ToString(params.AccountName)
	f.createAccountCalls = append(f.createAccountCalls, name)
	f.createAccountEmail = append(f.createAccountEmail, aws.ToString(params.Email))

	requestID := fmt.Sprintf("car-%d", len(f.requests))
	f.requests[requestID] = name
	return &organizations.CreateAccountOutput{
		CreateAccountStatus: &orgtypes.CreateAccountStatus{
			Id:    aws.String(requestID),
			State: orgtypes.CreateAccountStateInProgress,
		},
	}, nil
}

func (f *fakeOrgs) DescribeCreateAccountStatus(ctx context.Context, params *organizations.DescribeCreateAccountStatusInput, optFns ...func(*organizations.Options)) (*organizations.DescribeCreateAccountStatusOutput, error) {
	requestID := aws.ToString(params.CreateAccountRequestId)
	name := f.requests[requestID]

	status := &orgtypes.CreateAccountStatus{Id: aws.String(requestID), AccountName: aws.String(name)}
	switch {
	case f.stuck[name]:
		status.State = orgtypes.CreateAccountStateInProgress
	case f.failReasons[name] != "":
		status.State = orgtypes.CreateAccountStateFailed
		status.FailureReason = orgtypes.CreateAccountFailureReason(f.failReasons[name])
	default:
		accountID := fmt.Sprintf("%012d", 100+len(f.accounts))
		f.accounts = append(f.accounts, orgAccount(name, accountID))
		status.State = orgtypes.CreateAccountStateSucceeded
		status.AccountId = aws.String(accountID)
	}
	return &organizations.DescribeCreateAccountStatusOutput{CreateAccountStatus: status}, nil
}

// fakeIAM is an in-memory IAM API for a single account.
type fakeIAM struct {
	users    map[string]*fakeUser
	policies map[string]string // policy name -> arn

	failCreateKey int // number of CreateAccessKey calls that fail first

	createUserCalls   []string
	createKeyCalls    []string
	createPolicyCalls []string
	attachCalls       []string // "user:policyArn"
	keyCounter        int
}

type fakeUser struct {
	tags []iamtypes.Tag
	keys []iamtypes.AccessKeyMetadata
}

func newFakeIAM() *fakeIAM {
	return &fakeIAM{
		users:    make(map[string]*fakeUser),
		policies: make(map[string]string),
	}
}

func (f *fakeIAM) addUser(name string, tags ...iamtypes.Tag) *fakeUser {
	u := &fakeUser{tags: tags}
	f.users[name] = u
	return u
}

func (f *fakeIAM) GetUser(ctx context.Context, params *iam.GetUserInput, optFns ...func(*iam.Options)) (*iam.GetUserOutput, error) {
	name := aws.ToString(params.UserName)
	if _, ok := f.users[name]; !ok {
		return nil, &iamtypes.NoSuchEntityException{Message: aws.String("no such user")}
	}
	return &iam.GetUserOutput{User: &iamtypes.User{UserName: aws.String(name)}}, nil
}

func (f *fakeIAM) CreateUser(ctx context.Context, params *iam.CreateUserInput, optFns ...func(*iam.Options)) (*iam.CreateUserOutput, error) {
	name := aws.ToString(params.UserName)
	f.createUserCalls = append(f.createUserCalls, name)
	if _, ok := f.users[name]; ok {
		return nil, &iamtypes.EntityAlreadyExistsException{Message: aws.String("user exists")}
	}
	f.users[name] = &fakeUser{tags: params.Tags}
	return &iam.CreateUserOutput{User: &iamtypes.User{UserName: aws.String(name)}}, nil
}

func (f *fakeIAM) ListUserTags(ctx context.Context, params *iam.ListUserTagsInput, optFns ...func(*iam.Options)) (*iam.ListUserTagsOutput, error) {
	user, ok := f.users[aws.ToString(params.UserName)]
	if !ok {
		return nil, &iamtypes.NoSuchEntityException{Message: aws.String("no such user")}
	}
	return &iam.ListUserTagsOutput{Tags: user.tags}, nil
}

func (f *fakeIAM) AttachUserPolicy(ctx context.Context, params *iam.AttachUserPolicyInput, optFns ...func(*iam.Options)) (*iam.AttachUserPolicyOutput, error) {
	f.attachCalls = append(f.attachCalls, aws.ToString(params.UserName)+":"+aws.ToString(params.PolicyArn))
	return &iam.AttachUserPolicyOutput{}, nil
}

func (f *fakeIAM) CreatePolicy(ctx context.Context, params *iam.CreatePolicyInput, optFns ...func(*iam.Options)) (*iam.CreatePolicyOutput, error) {
	name := aws.ToString(params.PolicyName)
	f.createPolicyCalls = append(f.createPolicyCalls, name)
	if _, ok := f.policies[name]; ok {
		return nil, &iamtypes.EntityAlreadyExistsException{Message: aws.String("policy exists")}
	}
	arn := "arn:aws:iam::000000000000:policy/" + name
	f.policies[name] = arn
	return &iam.CreatePolicyOutput{
		Policy: &iamtypes.Policy{PolicyName: aws.String(name), Arn: aws.String(arn)},
	}, nil
}

func (f *fakeIAM) CreateAccessKey(ctx context.Context, params *iam.CreateAccessKeyInput, optFns ...func(*iam.Options)) (*iam.CreateAccessKeyOutput, error) {
	name := aws.ToString(params.UserName)
	f.createKeyCalls = append(f.createKeyCalls, name)
	if f.failCreateKey > 0 {
		f.failCreateKey--
		return nil, fmt.Errorf("key creation raced user propagation")
	}
	user, ok := f.users[name]
	if !ok {
		return nil, &iamtypes.NoSuchEntityException{Message: aws.String("no such user")}
	}
	f.keyCounter++
	keyID := fmt.Sprintf("AKIAFAKE%04d", f.keyCounter)
	user.keys = append(user.keys, iamtypes.AccessKeyMetadata{AccessKeyId: aws.String(keyID)})
	return &iam.CreateAccessKeyOutput{
		AccessKey: &iamtypes.AccessKey{
			UserName:        aws.String(name),
			AccessKeyId:     aws.String(keyID),
			SecretAccessKey: aws.String("secret-" + keyID),
		},
	}, nil
}

func (f *fakeIAM) ListAccessKeys(ctx context.Context, params *iam.ListAccessKeysInput, optFns ...func(*iam.Options)) (*iam.ListAccessKeysOutput, error) {
	user, ok := f.users[aws.ToString(params.UserName)]
	if !ok {
		return nil, &iamtypes.NoSuchEntityException{Message: aws.String("no such user")}
	}
	return &iam.ListAccessKeysOutput{AccessKeyMetadata: user.keys}, nil
}

// fakeSTS answers identity and role-assumption calls. Assumed credentials
// embed the target account id so the fake factory can route IAM calls to
// the right per-account fake.
type fakeSTS struct {
	arn       string
	accountID string

	identityErr    error
	assumeFailures int // first N AssumeRole calls fail
	assumeCalls    []string
}

func (f *fakeSTS) GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error) {
	if f.identityErr != nil {
		return nil, f.identityErr
	}
	return &sts.GetCallerIdentityOutput{
		Arn:     aws.String(f.arn),
		Account: aws.String(f.accountID),
		UserId:  aws.String("AIDAFAKE"),
	}, nil
}

func (f *fakeSTS) AssumeRole(ctx context.Context, params *sts.AssumeRoleInput, optFns ...func(*sts.Options)) (*sts.AssumeRoleOutput, error) {
	roleARN := aws.ToString(params.RoleArn)
	f.assumeCalls = append(f.assumeCalls, roleARN)
	if f.assumeFailures > 0 {
		f.assumeFailures--
		return nil, fmt.Errorf("role not yet propagated")
	}
	// arn:aws:iam::<account>:role/<name>
	accountID := roleARN[len("arn:aws:iam::") : len("arn:aws:iam::")+12]
	expiry := time.Now().Add(15 * time.Minute)
	return &sts.AssumeRoleOutput{
		Credentials: &ststypes.Credentials{
			AccessKeyId:     aws.String("ASIA" + accountID),
			SecretAccessKey: aws.String("assumed-secret"),
			SessionToken:    aws.String("assumed-token"),
			Expiration:      &expiry,
		},
	}, nil
}

// fakeFactory routes client construction: nil credentials get the
// management-account fakes, assumed credentials get the per-account IAM
// fake matching the account id baked into the access key id.
type fakeFactory struct {
	mgmtIAM    *fakeIAM
	orgs       *fakeOrgs
	sts        *fakeSTS
	accountIAM map[string]*fakeIAM // account id -> fake
}

func newFakeFactory(sts *fakeSTS, orgs *fakeOrgs) *fakeFactory {
	return &fakeFactory{
		mgmtIAM:    newFakeIAM(),
		orgs:       orgs,
		sts:        sts,
		accountIAM: make(map[string]*fakeIAM),
	}
}

// iamFor returns (creating if needed) the IAM fake for a member account.
func (f *fakeFactory) iamFor(accountID string) *fakeIAM {
	if client, ok := f.accountIAM[accountID]; ok {
		return client
	}
	client := newFakeIAM()
	f.accountIAM[accountID] = client
	return client
}

func (f *fakeFactory) IAM(creds aws.CredentialsProvider) IAMAPI {
	if creds == nil {
		return f.mgmtIAM
	}
	resolved, err := creds.Retrieve(context.Background())
	if err != nil {
		panic(err)
	}
	if len(resolved.AccessKeyID) == len("ASIA")+12 && resolved.AccessKeyID[:4] == "ASIA" {
		return f.iamFor(resolved.AccessKeyID[4:])
	}
	// Admin keys chain back to the management account.
	return f.mgmtIAM
}

func (f *fakeFactory) Organizations(creds aws.CredentialsProvider) OrganizationsAPI {
	return f.orgs
}

func (f *fakeFactory) STS(creds aws.CredentialsProvider) STSAPI {
	return f.sts
}

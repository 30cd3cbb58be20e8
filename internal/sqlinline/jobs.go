package sqlinline

const QCreateRelayJobsTable = `--sql 3b9c2f4e-8d1a-4c67-b5e2-71f0a9d4c6e8
create table if not exists relay_jobs (
    id text primary key,
    campaign_id text not null default '',
    position integer not null default 0,
    status text not null,
    error_kind text not null default '',
    job jsonb not null,
    asset_key text not null default '',
    title text not null default '',
    subtitle text not null default '',
    created_at timestamptz not null default now(),
    updated_at timestamptz not null default now()
);
create index if not exists relay_jobs_campaign_idx on relay_jobs (campaign_id, position);
`

const QUpsertRelayJob = `--sql 5e1d7a90-2c4b-4f38-9a61-0d8e3b7f2c54
insert into relay_jobs (id, campaign_id, position, status, error_kind, job, asset_key, title, subtitle, created_at, updated_at)
values ($1::text, $2::text, $3::int, $4::text, $5::text, $6::jsonb, $7::text, $8::text, $9::text, $10::timestamptz, now())
on conflict (id) do update set
    status = excluded.status,
    error_kind = excluded.error_kind,
    job = excluded.job,
    asset_key = excluded.asset_key,
    title = excluded.title,
    subtitle = excluded.subtitle,
    updated_at = now()
returning updated_at;
`

const QSelectRelayJob = `--sql 9a4f6c21-7e3b-4d85-8f10-c2b5e9d71a36
select id, campaign_id, position, job, asset_key, title, subtitle, created_at, updated_at
from relay_jobs
where id = $1::text;
`

const QSelectRelayJobsByCampaign = `--sql c7e2b8d3-1f49-4a6e-9d07-5b3a8f1e4c92
select id, campaign_id, position, job, asset_key, title, subtitle, created_at, updated_at
from relay_jobs
where campaign_id = $1::text
order by position asc, created_at asc;
`
